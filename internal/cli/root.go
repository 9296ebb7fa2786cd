// Package cli 命令行入口：启动服务，或直接执行导入、删除与 ERP 操作
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hypnotools/internal/app"
	"hypnotools/internal/config"
	"hypnotools/internal/logger"
)

// globalFlags 所有子命令共用的参数
type globalFlags struct {
	configPath string
	dataDir    string
	empresa    string
	token      string
	verbose    bool
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "hypnotools",
		Short: "Hypnotools - importação de clientes e estrutura ERP para o CRM",
		Long: `Hypnotools importa planilhas de clientes para o CRM, mapeia a estrutura
de obras do ERP para produtos e executa exclusões em lote de clientes.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "caminho do config.toml (padrão: ao lado do executável)")
	pf.StringVar(&g.dataDir, "data-dir", "", "diretório de dados (sobrescreve o config)")
	pf.StringVar(&g.empresa, "empresa", "", "identificador da empresa no CRM")
	pf.StringVar(&g.token, "token", "", "token do CRM")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log em nível debug")

	rootCmd.AddCommand(
		newServeCmd(g),
		newLoginCmd(g),
		newImportCmd(g),
		newDeleteCmd(g),
		newERPCmd(g),
	)

	return rootCmd
}

// loadConfig 配置文件 → 环境变量 → 命令行参数
func (g *globalFlags) loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	cfg, info, err := config.LoadConfigWithInfo(g.configPath)
	if err != nil {
		return nil, info, fmt.Errorf("failed to load config %s: %w", info.Path, err)
	}
	if g.dataDir != "" {
		cfg.Data.DataDir = g.dataDir
	}
	if g.empresa != "" {
		cfg.API.Empresa = g.empresa
	}
	if g.token != "" {
		cfg.API.Token = g.token
	}
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, info, nil
}

// openApp 组装 App；命令行模式下日志写到 stderr，stdout 只输出结果
func (g *globalFlags) openApp(ctx context.Context, cfg *config.AppConfig, cliMode bool) (*app.App, error) {
	logCfg := cfg.Log
	if cliMode && (logCfg.Output == "" || logCfg.Output == "stdout") {
		logCfg.Output = "stderr"
	}
	zl, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		return nil, err
	}

	// 命令行给出的公司与令牌优先于保存的会话
	if g.empresa != "" || g.token != "" {
		empresa, token := a.CRM.Credentials()
		if g.empresa != "" {
			empresa = g.empresa
		}
		if g.token != "" {
			token = g.token
		}
		a.CRM.SetCredentials(empresa, token)
	}
	return a, nil
}

// withApp 加载配置并在命令结束时释放资源
func (g *globalFlags) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, _, err := g.loadConfig()
	if err != nil {
		return err
	}
	a, err := g.openApp(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Logger.Sync()
		if err := a.Close(); err != nil {
			a.Logger.Warn("failed to close app", zap.Error(err))
		}
	}()
	return fn(cmd.Context(), a)
}

// printTable 以制表符分隔输出
func printTable(w io.Writer, header []string, rows [][]string) {
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
}

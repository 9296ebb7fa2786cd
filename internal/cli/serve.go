package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hypnotools/internal/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		port      int
		devMode   bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Inicia o servidor HTTP da interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "==========================================")
			fmt.Fprintln(out, "  Hypnotools - importação ERP / CRM")
			fmt.Fprintln(out, "==========================================")

			cfg, info, err := g.loadConfig()
			if err != nil {
				return err
			}
			// config.toml 显式配置的端口优先
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}

			a, err := g.openApp(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(out, "Diretório de dados: %s\n", a.DataDir)

			srv := server.NewServer(a)
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

			errCh := make(chan error, 1)
			go func() {
				fmt.Fprintf(out, "Servidor iniciando na porta %d ...\n", cfg.Server.Port)
				errCh <- srv.Run(addr)
			}()

			if !cfg.Server.DevMode && !noBrowser {
				fmt.Fprintf(out, "Abrindo navegador: %s\n", url)
				if err := openBrowser(url); err != nil {
					fmt.Fprintf(out, "Não foi possível abrir o navegador, acesse: %s\n", url)
				}
			} else {
				fmt.Fprintf(out, "Acesse %s\n", url)
			}

			fmt.Fprintln(out, "\nPressione Ctrl+C para parar...")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
				fmt.Fprintln(out, "\nEncerrando servidor...")
				return nil
			case err := <-errCh:
				a.Logger.Error("server stopped", zap.Error(err))
				return fmt.Errorf("falha ao iniciar servidor: %w", err)
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "porta do servidor (config.toml tem prioridade)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "modo desenvolvimento")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "não abrir o navegador")
	return cmd
}

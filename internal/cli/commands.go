package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hypnotools/internal/app"
	"hypnotools/internal/deletion"
	"hypnotools/internal/erp"
	"hypnotools/internal/importer"
	"hypnotools/internal/model"
	"hypnotools/internal/store"
	"hypnotools/internal/validation"
)

// errAborted 用户未确认
var errAborted = errors.New("operação cancelada")

func newLoginCmd(g *globalFlags) *cobra.Command {
	var req model.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Autentica no backend e salva a sessão",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Empresa == "" {
				req.Empresa = g.empresa
			}
			if err := validation.Struct(req, nil); err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := a.Backend.Login(ctx, req)
				if err != nil {
					return err
				}
				if !resp.Success {
					return fmt.Errorf("login recusado: %s", resp.Message)
				}
				if err := a.Store.SaveSession(resp.Token, resp.Usuario, req.Empresa); err != nil {
					return err
				}
				name := req.Email
				if resp.Usuario != nil && resp.Usuario.Nome != "" {
					name = resp.Usuario.Nome
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sessão iniciada: %s (%s)\n", name, req.Empresa)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "email do usuário")
	cmd.Flags().StringVar(&req.Senha, "senha", "", "senha")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("senha")
	return cmd
}

func newImportCmd(g *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <planilha.xlsx>",
		Short: "Importa clientes de uma planilha para o CRM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runImport(ctx, cmd, a, args[0], dryRun)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "apenas valida a planilha, sem enviar")
	return cmd
}

// runImport 打印进度事件，导入失败时返回错误
func runImport(ctx context.Context, cmd *cobra.Command, a *app.App, path string, dryRun bool) error {
	out := cmd.OutOrStdout()
	events := a.Coordinator.Import(ctx, importer.ImportOptions{
		FilePath: path,
		Empresa:  a.Empresa(),
		DryRun:   dryRun,
	})

	var (
		summary *importer.Summary
		lastErr string
	)
	for ev := range events {
		switch ev.Type {
		case importer.EventProgress:
			if p, ok := ev.Data.(model.Progress); ok {
				fmt.Fprintf(out, "[%3.0f%%] %s\n", p.Percentage, p.Operation)
				continue
			}
			fmt.Fprintf(out, "%s\n", ev.Message)
		case importer.EventWarning:
			fmt.Fprintf(out, "AVISO: %s\n", ev.Message)
		case importer.EventError:
			lastErr = ev.Message
			fmt.Fprintf(out, "ERRO: %s\n", ev.Message)
		case importer.EventDone:
			summary, _ = ev.Data.(*importer.Summary)
		default:
			fmt.Fprintln(out, ev.Message)
		}
	}

	if summary == nil {
		if lastErr == "" {
			lastErr = "importação interrompida"
		}
		return errors.New(lastErr)
	}

	fmt.Fprintf(out, "\nStatus: %s\n", summary.Status)
	fmt.Fprintf(out, "Linhas: %d (válidas: %d)\n", summary.TotalRows, summary.ValidRows)
	if r := summary.Result; r != nil {
		fmt.Fprintf(out, "Enviados: %d  Erros: %d\n", r.ProcessedCount, r.ErrorCount)
	}
	if summary.ReportPath != "" {
		fmt.Fprintf(out, "Relatório de erros: %s\n", summary.ReportPath)
	}
	if summary.LogPath != "" {
		fmt.Fprintf(out, "Log: %s\n", summary.LogPath)
	}
	for _, key := range summary.ArchivedKeys {
		fmt.Fprintf(out, "Arquivado: %s\n", key)
	}
	if summary.Status == store.ImportStatusFailed {
		return errors.New("nenhum cliente importado")
	}
	return nil
}

func newDeleteCmd(g *globalFlags) *cobra.Command {
	var (
		ids    string
		file   string
		req    model.DeletionRequest
		assume bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Exclui clientes em lote",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch {
			case file != "":
				req.ClientIDs, err = deletion.ParseIDsFromWorkbook(file)
			default:
				req.ClientIDs, err = deletion.ParseIDsFromText(ids)
			}
			if err != nil {
				return err
			}

			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				preview, err := a.Deletion.Preview(ctx, req.ClientIDs)
				if err != nil {
					return err
				}
				v := preview.Validation
				fmt.Fprintf(out, "Válidos: %d  Inválidos: %d  Registros afetados: %d\n",
					len(v.ValidIDs), len(v.InvalidIDs), preview.TotalRecords)
				for _, t := range preview.AffectedTables {
					fmt.Fprintf(out, "  %s: %d\n", t.TableName, t.RecordCount)
				}
				if len(v.InvalidIDs) > 0 {
					fmt.Fprintf(out, "IDs inválidos: %s\n", deletion.FormatIDs(v.InvalidIDs))
				}

				if !assume && !confirm(cmd, fmt.Sprintf("Excluir %d clientes? [s/N] ", len(v.ValidIDs))) {
					return errAborted
				}
				req.ConfirmDeletion = true

				res, err := a.Deletion.Run(ctx, req, func(p model.Progress) {
					fmt.Fprintf(out, "[%3.0f%%] %s\n", p.Percentage, p.Operation)
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res.Message)
				if res.Response != nil && res.Response.LogFileName != "" {
					fmt.Fprintf(out, "Log: %s\n", res.Response.LogFileName)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ids, "ids", "", "IDs separados por vírgula, espaço ou nova linha")
	cmd.Flags().StringVarP(&file, "file", "f", "", "planilha com os IDs (.xlsx)")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "motivo da exclusão (mínimo 10 caracteres)")
	cmd.Flags().StringVar(&req.UserEmail, "email", "", "email do responsável")
	cmd.Flags().BoolVarP(&assume, "yes", "y", false, "não pedir confirmação")
	cmd.MarkFlagsOneRequired("ids", "file")
	cmd.MarkFlagsMutuallyExclusive("ids", "file")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// confirm 读取一行，只有 s/sim/y/yes 视为确认
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}

func newERPCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erp",
		Short: "Consulta obras do ERP e importa estrutura de produtos",
	}
	cmd.AddCommand(
		newERPObrasCmd(g),
		newERPUnitsCmd(g),
		newERPTemplateCmd(),
		newERPImportCmd(g),
	)
	return cmd
}

func newERPObrasCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "obras",
		Short: "Lista obras ativas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				obras, err := a.ERP.Obras(ctx, a.Empresa())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(obras))
				for _, o := range obras {
					produto := ""
					if o.IDProduto != nil {
						produto = strconv.Itoa(*o.IDProduto)
					}
					rows = append(rows, []string{o.CodigoObra, o.NomeObra, o.StatusObra, produto})
				}
				printTable(cmd.OutOrStdout(), []string{"CODIGO", "NOME", "STATUS", "ID_PRODUTO"}, rows)
				return nil
			})
		},
	}
}

func newERPUnitsCmd(g *globalFlags) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "unidades <codigoObra>",
		Short: "Mostra unidades e o mapeamento inicial de uma obra",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				empresa := a.Empresa()
				if refresh {
					if err := a.ERP.Refresh(ctx, empresa, args[0]); err != nil {
						return err
					}
				}
				set, err := a.ERP.Units(ctx, empresa, args[0])
				if err != nil {
					return err
				}
				w, err := a.ERP.PrepareWizard(empresa, args[0], set)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Unidades: %d  Campos personalizados: %d\n", len(set.Units), len(set.CustomFields))
				if notice := erp.LargeImportNotice(len(set.Units)); notice != "" {
					fmt.Fprintln(out, notice)
				}
				rows := make([][]string, 0, len(w.Mappings))
				for _, m := range w.Mappings {
					source := ""
					if m.SourceField != nil {
						source = *m.SourceField
					} else if m.ManualValue != nil {
						source = "= " + *m.ManualValue
					}
					rows = append(rows, []string{m.Category, m.TargetField, source, erp.Preview(m, set.Units)})
				}
				printTable(out, []string{"CATEGORIA", "CAMPO", "ORIGEM", "EXEMPLO"}, rows)
				if !w.Validation.Valid {
					fmt.Fprintf(out, "Campos obrigatórios sem mapeamento: %s\n", strings.Join(w.Validation.Missing, ", "))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignora o cache")
	return cmd
}

func newERPTemplateCmd() *cobra.Command {
	var pattern string

	return &cobra.Command{
		Use:   "template <numeroUnidade>",
		Short: "Detecta o padrão de numeração ou testa um regex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var cfg model.TemplateConfig
			if pattern == "" {
				p, err := erp.DetectPattern(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Padrão: %s\n", p.Name)
				cfg = p.Config
			} else {
				cfg = model.TemplateConfig{
					Pattern:                   pattern,
					UnityNumberTemplate:       "{1}",
					UnityNumberCustomTemplate: "{1}",
					FloorTemplate:             "{1}",
					StripSpaces:               true,
				}
			}

			res := erp.TestTemplate(cfg, args[0])
			if !res.Success {
				return errors.New(res.Error)
			}
			fmt.Fprintf(out, "Grupos: %s\n", strings.Join(res.Groups, ", "))
			fmt.Fprintf(out, "unity_number: %s\n", res.UnityNumber)
			fmt.Fprintf(out, "unity_number_custom: %s\n", res.UnityNumberCustom)
			fmt.Fprintf(out, "floor: %s\n", res.Floor)
			return nil
		},
	}
}

func newERPImportCmd(g *globalFlags) *cobra.Command {
	var (
		productID int
		preview   bool
	)

	cmd := &cobra.Command{
		Use:   "import <codigoObra>",
		Short: "Importa a estrutura de uma obra usando o mapeamento salvo ou automático",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				empresa := a.Empresa()
				obra, err := a.ERP.Obra(ctx, empresa, args[0])
				if err != nil {
					return err
				}
				set, err := a.ERP.Units(ctx, empresa, args[0])
				if err != nil {
					return err
				}
				w, err := a.ERP.PrepareWizard(empresa, args[0], set)
				if err != nil {
					return err
				}

				req := erp.StructureImport{
					Empresa:         empresa,
					Obra:            obra,
					ManualProductID: productID,
					Units:           set.Units,
					Mappings:        w.Mappings,
					Statuses:        w.Statuses,
				}
				if preview {
					payload, err := a.ERP.Preview(req)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Produto %d: %d tipologias, %d unidades\n",
						payload.IDProduto, len(payload.Tipologias), len(payload.Unidades))
					return nil
				}

				if notice := erp.LargeImportNotice(len(set.Units)); notice != "" {
					fmt.Fprintln(out, notice)
				}
				res, err := a.ERP.ImportStructure(ctx, req)
				if err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Message)
				}
				fmt.Fprintln(out, res.Message)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&productID, "produto", 0, "ID do produto (padrão: o da obra)")
	cmd.Flags().BoolVar(&preview, "preview", false, "apenas monta o payload")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"vpnbot/app"
	"vpnbot/xui"

	"github.com/spf13/cobra"
)

// panelClient операции панели, которые нужны CLI
type panelClient interface {
	Settings() xui.Settings
	Probe(ctx context.Context, target string) error
	Login(ctx context.Context) error
	GetInbounds(ctx context.Context) ([]xui.Inbound, error)
}

var panelCheckCmd = &cobra.Command{
	Use:   "panel-check",
	Short: "Check that the 3x-ui panel is reachable and accepts the credentials",
	Run: func(cmd *cobra.Command, args []string) {
		runPanelCommand(cmd, runPanelCheck)
	},
}

var inboundsCmd = &cobra.Command{
	Use:   "inbounds",
	Short: "List inbounds configured in the 3x-ui panel",
	Run: func(cmd *cobra.Command, args []string) {
		runPanelCommand(cmd, runInbounds)
	},
}

func init() {
	rootCmd.AddCommand(panelCheckCmd)
	rootCmd.AddCommand(inboundsCmd)
}

func runPanelCommand(cmd *cobra.Command, run func(context.Context, io.Writer, panelClient) int) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(2)
	}
	panel, _, err := app.NewPanel(cfg, nil)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(2)
	}
	if code := run(ctx, cmd.OutOrStdout(), panel); code != 0 {
		os.Exit(code)
	}
}

// runPanelCheck проверяет доступность и авторизацию, возвращает код выхода
func runPanelCheck(ctx context.Context, w io.Writer, panel panelClient) int {
	settings := panel.Settings()
	fmt.Fprintf(w, "Panel:     %s\n", settings.URL)
	fmt.Fprintf(w, "Username:  %s\n", settings.Username)

	if err := panel.Probe(ctx, settings.URL); err != nil {
		res := xui.AsResult(err)
		fmt.Fprintf(w, "Reachable: no (%s: %s)\n", res.Code, res.Message)
		return 1
	}
	fmt.Fprintln(w, "Reachable: yes")

	if err := panel.Login(ctx); err != nil {
		res := xui.AsResult(err)
		fmt.Fprintf(w, "Login:     failed (%s: %s)\n", res.Code, res.Message)
		return 1
	}
	fmt.Fprintln(w, "Login:     ok")
	return 0
}

// runInbounds печатает таблицу inbounds
func runInbounds(ctx context.Context, w io.Writer, panel panelClient) int {
	inbounds, err := panel.GetInbounds(ctx)
	if err != nil {
		res := xui.AsResult(err)
		fmt.Fprintf(w, "Error: %s (%s)\n", res.Message, res.Code)
		return 1
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREMARK\tPROTOCOL\tPORT\tENABLED\tCLIENTS")
	for _, in := range inbounds {
		clients := "-"
		if list, err := in.Clients(); err == nil {
			clients = fmt.Sprintf("%d", len(list))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\t%s\n", in.ID, in.Remark, in.Protocol, in.Port, in.Enable, clients)
	}
	tw.Flush()
	return 0
}

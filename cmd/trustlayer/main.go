package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/trustlayer/internal/application"
	"github.com/bryanwahyu/trustlayer/internal/application/contextcheck"
	"github.com/bryanwahyu/trustlayer/internal/application/emergency"
	"github.com/bryanwahyu/trustlayer/internal/application/reports"
	appsession "github.com/bryanwahyu/trustlayer/internal/application/session"
	"github.com/bryanwahyu/trustlayer/internal/application/workflow"
	"github.com/bryanwahyu/trustlayer/internal/config"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/domain/media"
	"github.com/bryanwahyu/trustlayer/internal/infra/httpserver"
	"github.com/bryanwahyu/trustlayer/internal/middleware"
)

// cli holds flag values for one command tree.
type cli struct {
	configPath string
	logLevel   string

	chamber    string
	jsonOutput bool
	lat, lng   float64
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "trustlayer",
		Short:        "TrustLayer media authenticity analysis",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.Path(), "config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  c.runServe,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one file in a chamber",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&c.chamber, "chamber", string(chamber.ImageAuth), "chamber id")
	analyzeCmd.Flags().BoolVar(&c.jsonOutput, "json", false, "print the raw result as JSON")

	chambersCmd := &cobra.Command{
		Use:   "chambers",
		Short: "List analysis chambers",
		RunE:  runChambers,
	}

	checkClaimCmd := &cobra.Command{
		Use:   "check-claim <text>",
		Short: "Score a news claim for credibility",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runCheckClaim,
	}
	checkClaimCmd.Flags().BoolVar(&c.jsonOutput, "json", false, "print the report as JSON")

	emergencyCmd := &cobra.Command{
		Use:   "emergency",
		Short: "Show emergency contacts and safe spots",
		RunE:  c.runEmergency,
	}
	emergencyCmd.Flags().Float64Var(&c.lat, "lat", 0, "latitude")
	emergencyCmd.Flags().Float64Var(&c.lng, "lng", 0, "longitude")

	root.AddCommand(serveCmd, analyzeCmd, chambersCmd, checkClaimCmd, emergencyCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(c.configPath, c.logLevel)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	svc, err := a.analysisService(ctx)
	if err != nil {
		return err
	}
	store := workflow.NewStore(a.registry, svc, workflow.StoreConfig{
		IdleTTL: cfg.Server.WorkspaceIdleTTL,
		MachineOptions: []workflow.Option{
			workflow.WithOnSettled(func(s workflow.Snapshot) {
				log.Info("analysis settled",
					zap.String("state", string(s.State)),
					zap.Uint64("generation", s.Generation))
			}),
		},
	})
	defer store.Close()

	health := map[string]middleware.HealthChecker{}
	repo, err := a.sessionRepo(ctx, health)
	if err != nil {
		return err
	}
	tokens, err := appsession.NewTokens(a.signingKey(), application.SystemClock{})
	if err != nil {
		return err
	}
	sessions := appsession.NewService(repo, appsession.Config{
		RememberTTL: cfg.Session.RememberTTL,
		SessionTTL:  cfg.Session.TTL,
		Logger:      log,
		OnLogout:    store.Drop,
	})

	pub, err := a.publisher(ctx, health)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	defer limiter.Close()

	handler := httpserver.NewRouter(httpserver.Deps{
		Registry:       a.registry,
		Workspaces:     store,
		Sessions:       sessions,
		Tokens:         tokens,
		Checker:        contextcheck.New(rand.New(rand.NewSource(time.Now().UnixNano())), cfg.ContextCheck.StepDelay),
		Emergency:      emergency.NewService(log),
		Reports:        reports.NewService(application.SystemClock{}, pub, log),
		Limiter:        limiter,
		Health:         health,
		Logger:         log,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.Analysis.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	middleware.SetReady(true)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", addr), zap.String("session_backend", cfg.Session.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Server.WorkspaceIdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					log.Debug("expired sessions dropped", zap.Int("count", n))
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		middleware.SetReady(false)
		log.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (c *cli) runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(c.configPath, c.logLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if int64(len(data)) > a.cfg.Analysis.MaxUploadBytes {
		return fmt.Errorf("%s is larger than %d bytes", args[0], a.cfg.Analysis.MaxUploadBytes)
	}

	svc, err := a.analysisService(ctx)
	if err != nil {
		return err
	}
	m := workflow.NewMachine(a.registry, svc)
	if _, err := m.SelectChamber(chamber.ID(c.chamber)); err != nil {
		return err
	}
	done, err := m.Start(ctx, analysis.Upload{
		Name:     filepath.Base(args[0]),
		MIMEType: media.Sniff(args[0], data),
		Data:     data,
	})
	if err != nil {
		return err
	}
	snap := <-done
	m.Wait()

	out := cmd.OutOrStdout()
	if snap.State == workflow.StateError {
		return errors.New(snap.Error)
	}
	if c.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Result)
	}

	res := snap.Result
	fmt.Fprintf(out, "%s (%s)\n", snap.Chamber.Title, snap.File.MIMEType)
	fmt.Fprintf(out, "AI probability:  %d%%\n", res.AIGeneratedProbability)
	fmt.Fprintf(out, "Deepfake risk:   %s\n", res.DeepfakeRisk)
	fmt.Fprintf(out, "Confidence:      %s\n", res.ConfidenceLevel)
	fmt.Fprintf(out, "Artifacts:       %s\n", strings.Join(res.ArtifactsDetected, "; "))
	fmt.Fprintf(out, "Model signals:   %s\n", strings.Join(res.ModelLikelihood, "; "))
	fmt.Fprintf(out, "\n%s\n\nLimitations: %s\n", res.AnalysisSummary, res.Limitations)

	if reports.Applies(res, snap.Chamber.ID) {
		panel, err := reports.NewService(application.SystemClock{}, nil, a.log).Build(ctx, res, snap.Chamber.ID, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s", panel.Report)
	}
	return nil
}

func runChambers(cmd *cobra.Command, _ []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tBADGE\tFLOW")
	for _, c := range chamber.NewRegistry().List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Badge, c.Flow)
	}
	return tw.Flush()
}

func (c *cli) runCheckClaim(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(c.configPath, c.logLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	checker := contextcheck.New(rand.New(rand.NewSource(time.Now().UnixNano())), a.cfg.ContextCheck.StepDelay)
	progress := make(chan contextcheck.Progress)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for p := range progress {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", p.Percent, p.Step)
		}
	}()

	report, err := checker.Check(cmd.Context(), strings.Join(args, " "), progress)
	<-printed
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(out, "Credibility: %d/100 (%s)\n", report.Score, report.Verdict)
	fmt.Fprintf(out, "Sentiment:   %s\n", report.Sentiment)
	if len(report.Fallacies) > 0 {
		fmt.Fprintf(out, "Flags:       %s\n", strings.Join(report.Fallacies, "; "))
	}
	for _, s := range report.Sources {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", s.Name, s.Credibility, s.Status)
	}
	return nil
}

func (c *cli) runEmergency(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(c.configPath, c.logLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	var loc *emergency.Location
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
		if err := middleware.ValidateCoordinates(c.lat, c.lng); err != nil {
			return err
		}
		loc = &emergency.Location{Lat: c.lat, Lng: c.lng}
	}
	resp := emergency.NewService(a.log).Activate(cmd.Context(), emergency.Fixed(loc))

	out := cmd.OutOrStdout()
	if resp.Message != "" {
		fmt.Fprintln(out, resp.Message)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDISTANCE\tTIME\tPHONE")
	for _, s := range resp.Spots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Type, s.Distance, s.Time, s.Phone)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nHelplines:")
	for _, ct := range reports.Contacts(resp.Located) {
		fmt.Fprintf(out, "  %s: %s\n", ct.Label, ct.Number)
	}
	return nil
}

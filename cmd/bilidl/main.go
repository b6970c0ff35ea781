package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/internal/config"
	"github.com/bilidl/bilidl/internal/downloader"
	"github.com/bilidl/bilidl/internal/events"
	"github.com/bilidl/bilidl/internal/ffmpeg"
	"github.com/bilidl/bilidl/internal/infocache"
	"github.com/bilidl/bilidl/internal/tui"
	"github.com/bilidl/bilidl/pkg/progress"
)

// version/commit/date are set via ldflags at build time, grounded on
// greg's cmd/greg/main.go.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool

	cfg          *config.Config
	client       *biliclient.Client
	cache        *infocache.Cache
	appLogger    *slog.Logger
	ffmpegBinary string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bilidl",
	Short: "A concurrent downloader and dashboard for bilibili videos, bangumi, and cheese courses",
	Long: `bilidl fetches video, audio, danmaku, subtitles, covers, and NFO
metadata for bilibili episodes, merging and chaptering the result with
ffmpeg, and tracks every in-flight download in a terminal dashboard.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var v *viper.Viper
		var err error
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err := config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appLogger = logger

		client, err = biliclient.New(&cfg.Downloads)
		if err != nil {
			return fmt.Errorf("failed to initialize bilibili client: %w", err)
		}
		client.SetSessData(cfg.Downloads.SessData)

		cache, err = infocache.Open(filepath.Join(config.AppDataDir(), "infocache.db"))
		if err != nil {
			return fmt.Errorf("failed to open info cache: %w", err)
		}

		if info, err := ffmpeg.Detect(); err != nil {
			appLogger.Warn("ffmpeg not found, merge/chapter-embed/skip-embed stages will fail", "error", err)
			ffmpegBinary = ""
		} else {
			ffmpegBinary = info.Binary
			appLogger.Info("found ffmpeg", "binary", info.Binary, "version", info.Version)
		}

		v.WatchConfig()
		config.WatchSemaphoreSizes(v, func(taskConcurrency, chunkConcurrency int) {
			appLogger.Info("config reload observed new semaphore sizes, restart to apply",
				"task_concurrency", taskConcurrency, "chunk_concurrency", chunkConcurrency)
		})

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cache != nil {
			_ = cache.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(nil)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: app data dir)/config.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")

	rootCmd.AddCommand(versionCmd, configCmd, downloadCmd, pauseCmd, resumeCmd, restartCmd, deleteCmd, loginCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(rootCmd.Version)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitializeDirs(); err != nil {
			return err
		}
		defaultCfg, _, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = filepath.Join(config.AppDataDir(), "config.json")
		}
		if err := config.Save(path, defaultCfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = filepath.Join(config.AppDataDir(), "config.json")
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%+v\n", cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathCmd, configShowCmd)
}

var useClipboard bool

var downloadCmd = &cobra.Command{
	Use:   "download [url-or-id]",
	Short: "Queue a video, bangumi season, or cheese season for download",
	Long: `Accepts a bilibili video URL/BVID/avID, or a bangumi/cheese season
URL (ss<id>). When no argument is given, --clipboard reads the link from
the system clipboard instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := downloadInput(args)
		if err != nil {
			return err
		}

		paramsList, err := downloader.ResolveInput(client, input)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", input, err)
		}
		if len(paramsList) == 0 {
			return fmt.Errorf("no episodes found for %q", input)
		}

		return runDashboard(paramsList)
	},
}

func downloadInput(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if !useClipboard {
		return "", fmt.Errorf("provide a url/id argument or pass --clipboard")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

func init() {
	downloadCmd.Flags().BoolVar(&useClipboard, "clipboard", false, "read the url/id to download from the system clipboard")
}

var pauseCmd = &cobra.Command{
	Use:   "pause <task-id>",
	Short: "Pause a running task",
	Args:  cobra.ExactArgs(1),
	RunE:  taskActionRunE(func(m *downloader.Manager, id string) error { return m.Pause(id) }),
}

var resumeCmd = &cobra.Command{
	Use:   "resume <task-id>",
	Short: "Resume a paused task",
	Args:  cobra.ExactArgs(1),
	RunE:  taskActionRunE(func(m *downloader.Manager, id string) error { return m.Resume(id) }),
}

var restartCmd = &cobra.Command{
	Use:   "restart <task-id>",
	Short: "Restart a failed or completed task from scratch",
	Args:  cobra.ExactArgs(1),
	RunE:  taskActionRunE(func(m *downloader.Manager, id string) error { return m.Restart(id) }),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Stop a task and remove its journal entry",
	Args:  cobra.ExactArgs(1),
	RunE:  taskActionRunE(func(m *downloader.Manager, id string) error { return m.Delete(id) }),
}

// taskActionRunE restores the task set, applies fn to the named task, and
// gives the driver goroutine a moment to journal the new state before
// exiting — these subcommands are one-shot, unlike the dashboard which
// stays resident.
func taskActionRunE(fn func(m *downloader.Manager, id string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		m, _, err := newManager(ctx)
		if err != nil {
			return err
		}
		if err := m.RestoreAll(); err != nil {
			return err
		}
		if err := fn(m, args[0]); err != nil {
			return err
		}
		time.Sleep(200 * time.Millisecond)
		return nil
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in via QR code and save the session cookie to the config",
	RunE: func(cmd *cobra.Command, args []string) error {
		qr, err := client.GenerateQRCode()
		if err != nil {
			return fmt.Errorf("failed to generate qrcode: %w", err)
		}

		fmt.Printf("Scan with the bilibili app, or open this URL:\n%s\n", qr.URL)
		if err := browser.OpenURL(qr.URL); err != nil {
			appLogger.Warn("failed to open browser automatically", "error", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		sessData, err := client.LoginWithQRCode(ctx, qr.QrcodeKey)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Downloads.SessData = sessData
		path := cfgFile
		if path == "" {
			path = filepath.Join(config.AppDataDir(), "config.json")
		}
		if err := config.Save(path, cfg); err != nil {
			return fmt.Errorf("logged in but failed to save session cookie: %w", err)
		}

		fmt.Println("login successful, session saved")
		return nil
	},
}

// newManager wires the core orchestrator the same way for every command
// that needs it: dashboard, download, and the one-shot task actions.
func newManager(ctx context.Context) (*downloader.Manager, *events.Bus, error) {
	journal := downloader.NewJournal(filepath.Join(config.AppDataDir(), config.TaskDirName), appLogger)
	bus := events.New()
	return downloader.NewManager(ctx, &cfg.Downloads, client, bus, journal, cache, ffmpegBinary, appLogger), bus, nil
}

// runDashboard starts the orchestrator, restores journaled tasks, queues
// newParams as fresh tasks, and runs the bubbletea dashboard in the
// foreground until the user quits — grounded on greg's default RunE
// launching the TUI, and on darkprince558-JEND's p.Send bridge loop for
// wiring the event bus into bubbletea.
func runDashboard(newParams []progress.CreateParams) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, bus, err := newManager(ctx)
	if err != nil {
		return err
	}
	if err := m.RestoreAll(); err != nil {
		return err
	}
	go m.RunSpeedMeter(ctx)

	for _, params := range newParams {
		if _, err := m.Create(params); err != nil {
			appLogger.Error("failed to create task", "error", err)
		}
	}

	actions := tui.Actions{
		Pause:   func(id string) { _ = m.Pause(id) },
		Resume:  func(id string) { _ = m.Resume(id) },
		Restart: func(id string) { _ = m.Restart(id) },
		Delete:  func(id string) { _ = m.Delete(id) },
	}
	program := tea.NewProgram(tui.New(actions), tea.WithAltScreen())

	go tui.Bridge(ctx, bus, program)

	_, err = program.Run()
	return err
}

package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/app"
	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/export"
	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/highlight"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/planner"
	"github.com/kikiluvv/clipforge/internal/publish"
	"github.com/kikiluvv/clipforge/internal/store"
	"github.com/kikiluvv/clipforge/pkg/util"
)

var (
	cfgFile string
	verbose bool

	analyzeOut string

	exportHighlightsFile string
	exportSelect         string
	exportPreset         string
	exportOutDir         string

	planStartDate string
	planSeed      int64
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "clipforge - scene-change highlight cutter and publishing planner",
	Long:  "Imports a video, detects highlight scenes, cuts and transcodes them to social presets, and builds a publishing schedule.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Optional .env for local overrides
		_ = godotenv.Load()

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "highlight list output file (default: <video>.highlights.json)")

	exportCmd.Flags().StringVar(&exportHighlightsFile, "highlights", "", "highlight list file (default: <video>.highlights.json)")
	exportCmd.Flags().StringVar(&exportSelect, "select", "", "comma-separated 1-based highlight indices (default: all)")
	exportCmd.Flags().StringVar(&exportPreset, "preset", "", "export preset (see 'clipforge presets')")
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "", "output folder (default from config)")

	planGenerateCmd.Flags().StringVar(&planStartDate, "start-date", "", "first posting day, YYYY-MM-DD (default: tomorrow)")
	planGenerateCmd.Flags().Int64Var(&planSeed, "seed", 0, "hashtag sampling seed (0: random)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(configCmd)
}

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, cfg.FFmpegPath, cfg.FFprobePath)
}

// newSession wires the analysis and export workers behind the session
// orchestrator.
func newSession(cfg *config.Config) (*app.Session, error) {
	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	detector := highlight.NewDetector(log.Logger, exec, highlight.Config{
		Threshold:    cfg.Detector.Threshold,
		MinSceneLen:  secs(cfg.Detector.MinSceneSec),
		MinHighlight: secs(cfg.Detector.MinHighlightSec),
	})

	cutter := &export.FFmpegCutter{Exec: exec, Timeout: time.Duration(cfg.Export.CutTimeoutSec) * time.Second}
	transcoder := export.NewTranscoder(log.Logger, exec, time.Duration(cfg.Export.TranscodeTimeoutSec)*time.Second)
	pipeline := export.NewPipeline(log.Logger, cutter, transcoder)

	return app.NewSession(log.Logger, detector, pipeline), nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DBPath(), log.Logger)
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video]",
	Short: "Detect scene-change highlights in a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		videoPath := args[0]

		sess, err := newSession(cfg)
		if err != nil {
			return err
		}
		sess.LoadVideo(videoPath, nil)

		events, err := sess.StartAnalysis(cmd.Context())
		if err != nil {
			return err
		}

		var highlights []highlight.Highlight
		for ev := range events {
			switch ev.Kind {
			case highlight.EventProgress:
				fmt.Printf("\r[%3d%%] %-50s", ev.Percent, ev.Message)
			case highlight.EventError:
				fmt.Println()
				return fmt.Errorf("analysis failed: %s", ev.Err)
			case highlight.EventFinished:
				fmt.Println()
				highlights = ev.Highlights
			}
		}

		if len(highlights) == 0 {
			log.Warn().Msg("no highlights found, try lowering the threshold")
			return nil
		}

		fmt.Printf("\n%-4s %-28s %-12s %-12s %s\n", "#", "Description", "Start", "End", "Score")
		for i, hl := range highlights {
			fmt.Printf("%-4d %-28s %-12s %-12s %.2f\n",
				i+1, hl.Description,
				util.FormatDuration(hl.Start), util.FormatDuration(hl.End), hl.Score)
		}

		outPath := analyzeOut
		if outPath == "" {
			outPath = defaultHighlightsPath(videoPath)
		}
		if err := highlight.SaveList(outPath, highlights); err != nil {
			return fmt.Errorf("failed to save highlight list: %w", err)
		}
		log.Info().Str("file", outPath).Int("highlights", len(highlights)).Msg("highlight list saved")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [input video]",
	Short: "Cut and transcode highlights to a social preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		videoPath := args[0]

		hlFile := exportHighlightsFile
		if hlFile == "" {
			hlFile = defaultHighlightsPath(videoPath)
		}
		highlights, err := highlight.LoadList(hlFile)
		if err != nil {
			return fmt.Errorf("failed to load highlight list %s (run analyze first?): %w", hlFile, err)
		}
		highlights, err = selectHighlights(highlights, exportSelect)
		if err != nil {
			return err
		}
		if len(highlights) == 0 {
			return fmt.Errorf("nothing selected for export")
		}

		presetName := exportPreset
		if presetName == "" {
			presetName = cfg.Export.DefaultPreset
		}
		outDir := exportOutDir
		if outDir == "" {
			outDir = cfg.OutputDir
		}

		sess, err := newSession(cfg)
		if err != nil {
			return err
		}
		sess.LoadVideo(videoPath, nil)

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := sess.StartExport(cmd.Context(), highlights, outDir, presetName)
		if err != nil {
			return err
		}

		var result []export.ExportedClipInfo
		for ev := range events {
			switch ev.Kind {
			case export.EventItemStarted:
				fmt.Printf("[%d/%d] %s...\n", ev.Index+1, len(highlights), ev.Description)
			case export.EventItemFinished:
				if ev.OK {
					fmt.Printf("  -> %s\n", ev.Path)
				} else {
					fmt.Printf("  -> FAILED: %s\n", ev.Err)
				}
			case export.EventBatchError:
				return fmt.Errorf("export failed: %s", ev.Err)
			case export.EventBatchFinished:
				result = ev.Exported
				fmt.Printf("\nExported %d/%d clips to %s\n", ev.Successes, len(highlights), outDir)
			}
		}

		for _, info := range result {
			if err := db.RecordExport(cmd.Context(), info, presetName); err != nil {
				log.Warn().Err(err).Str("clip", info.Path).Msg("failed to record export")
			}
		}
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available export presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range export.PresetNames() {
			p, _ := export.LookupPreset(name)
			marker := " "
			if name == export.DefaultPresetName {
				marker = "*"
			}
			fmt.Printf("%s %-10s %s\n", marker, p.Name, p.Description)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Publishing schedule commands",
}

var planGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build a publishing schedule from exported clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		clips, err := db.ListExports(cmd.Context())
		if err != nil {
			return err
		}
		if len(clips) == 0 {
			return fmt.Errorf("no exported clips on record, run export first")
		}

		startDate := time.Now().AddDate(0, 0, 1)
		if planStartDate != "" {
			startDate, err = time.ParseInLocation("2006-01-02", planStartDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --start-date: %w", err)
			}
		}
		seed := planSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		items := planner.GeneratePlan(clips, planner.Options{
			StartDate:    startDate,
			PostsPerDay:  cfg.Planner.PostsPerDay,
			StartHour:    cfg.Planner.StartHour,
			Platforms:    cfg.Planner.Platforms,
			BaseHashtags: cfg.Planner.BaseHashtags,
			Rand:         rand.New(rand.NewSource(seed)),
		})

		if err := db.SavePlan(cmd.Context(), items); err != nil {
			return err
		}
		printPlan(items)
		return nil
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the stored publishing schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.LoadPlan(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No plan stored. Run 'clipforge plan generate'.")
			return nil
		}
		printPlan(items)
		return nil
	},
}

var planRemoveCmd = &cobra.Command{
	Use:   "remove [item id]",
	Short: "Remove one item from the schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		existed, err := db.DeletePlanItem(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("no plan item with id %s", args[0])
		}
		log.Info().Str("id", args[0]).Msg("plan item removed")
		return nil
	},
}

var planClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the whole schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearPlan(cmd.Context()); err != nil {
			return err
		}
		log.Info().Msg("plan cleared")
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish [item id]",
	Short: "Publish one scheduled item (simulated upload)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		item, err := db.GetPlanItem(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		mgr := publish.NewManager(log.Logger, 2*time.Second)
		if err := mgr.Authenticate(item.Platform); err != nil {
			return err
		}
		if err := mgr.Upload(cmd.Context(), item.Platform, item.ClipPath, item.Title, item.Description, item.Hashtags); err != nil {
			return err
		}

		fmt.Printf("Published %s to %s\n", filepath.Base(item.ClipPath), item.Platform)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		fmt.Printf("ffmpeg:             %s\n", cfg.FFmpegPath)
		fmt.Printf("ffprobe:            %s\n", cfg.FFprobePath)
		fmt.Printf("output dir:         %s\n", cfg.OutputDir)
		fmt.Printf("database:           %s\n", cfg.DBPath())
		fmt.Printf("threshold:          %.1f\n", cfg.Detector.Threshold)
		fmt.Printf("min scene len:      %.1fs\n", cfg.Detector.MinSceneSec)
		fmt.Printf("min highlight len:  %.1fs\n", cfg.Detector.MinHighlightSec)
		fmt.Printf("default preset:     %s\n", cfg.Export.DefaultPreset)
		fmt.Printf("posts per day:      %d\n", cfg.Planner.PostsPerDay)
		fmt.Printf("start hour:         %02d:00\n", cfg.Planner.StartHour)
		fmt.Printf("platforms:          %s\n", strings.Join(cfg.Planner.Platforms, ", "))
		return nil
	},
}

func init() {
	planCmd.AddCommand(planGenerateCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planRemoveCmd)
	planCmd.AddCommand(planClearCmd)
	configCmd.AddCommand(configShowCmd)
}

func defaultHighlightsPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".highlights.json"
}

// selectHighlights filters by 1-based comma-separated indices; empty
// selection keeps everything.
func selectHighlights(hls []highlight.Highlight, selection string) ([]highlight.Highlight, error) {
	if strings.TrimSpace(selection) == "" {
		return hls, nil
	}
	var picked []highlight.Highlight
	for _, part := range strings.Split(selection, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 1 || idx > len(hls) {
			return nil, fmt.Errorf("invalid highlight selection %q (have 1-%d)", part, len(hls))
		}
		picked = append(picked, hls[idx-1])
	}
	return picked, nil
}

func printPlan(items []planner.PlanItem) {
	fmt.Printf("%-36s %-17s %-16s %s\n", "ID", "Post at", "Platform", "Clip")
	for _, item := range items {
		fmt.Printf("%-36s %-17s %-16s %s\n",
			item.ID,
			item.PostAt.Format("2006-01-02 15:04"),
			item.Platform,
			filepath.Base(item.ClipPath))
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"wallmotion/internal/config"
	"wallmotion/internal/engine"
	"wallmotion/internal/ipc"
	"wallmotion/internal/manager"
	"wallmotion/internal/mcp"
	"wallmotion/internal/platform"
	"wallmotion/internal/playback"
	"wallmotion/internal/preview"
	"wallmotion/internal/runtimepath"
	"wallmotion/internal/scale"
	"wallmotion/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: wallmotion daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: wallmotion daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "displays":
		os.Exit(runDisplays(os.Args[2:]))
	case "assign":
		os.Exit(runAssign(os.Args[2:]))
	case "clear":
		os.Exit(runClear(os.Args[2:]))
	case "scale":
		os.Exit(runScale(os.Args[2:]))
	case "pause":
		os.Exit(runPause(os.Args[2:]))
	case "resume":
		os.Exit(runResume(os.Args[2:]))
	case "recent":
		os.Exit(runRecent(os.Args[2:]))
	case "preview":
		os.Exit(runPreview(os.Args[2:]))
	case "manager":
		os.Exit(runManager(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: wallmotion <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the wallmotion daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  displays            List connected displays and their wallpapers")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  assign              Assign a video wallpaper to a display")
	fmt.Fprintln(w, "  clear               Clear a display's wallpaper")
	fmt.Fprintln(w, "  scale               Change a display's scale mode")
	fmt.Fprintln(w, "  pause               Pause playback on all displays")
	fmt.Fprintln(w, "  resume              Resume playback on all displays")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  recent              List recently used wallpapers")
	fmt.Fprintln(w, "  preview             Extract a still frame from a media file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config power        Set the AC-only playback preference")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  manager             Open interactive wallpaper manager")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'wallmotion <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("paused:         %v\n", status.Paused)
	fmt.Printf("power_paused:   %v\n", status.PowerPaused)
	fmt.Printf("display_count:  %d\n", len(status.Displays))
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runDisplays(args []string) int {
	fs := flag.NewFlagSet("displays", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion displays [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List connected displays with geometry and wallpaper state.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output display details as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "displays takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	data, err := client.ListDisplays()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data.Displays); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	for _, d := range data.Displays {
		fmt.Printf("%s  %dx%d+%d+%d  scale=%.2f  state=%s", d.ID, d.Width, d.Height, d.X, d.Y, d.ScaleFactor, d.State)
		if d.MediaPath != "" {
			fmt.Printf("  %s (%s)", d.MediaPath, d.ScaleMode)
		}
		if d.Occluded {
			fmt.Printf("  [occluded]")
		}
		if d.Error != "" {
			fmt.Printf("  error=%s", d.Error)
		}
		fmt.Println()
	}
	return 0
}

func runAssign(args []string) int {
	fs := flag.NewFlagSet("assign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion assign [--mode MODE] <display> <media-path>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Assign a looping video wallpaper to a display.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	mode := fs.String("mode", "fill", "Scale mode: fill, fit, stretch or center")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "assign requires a display and a media path")
		fs.Usage()
		return 2
	}
	if _, err := scale.ParseMode(*mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient()
	if err := client.Assign(fs.Arg(0), fs.Arg(1), *mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runClear(args []string) int {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion clear <display>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Remove a display's wallpaper assignment and tear down its surface.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "clear requires a display")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Clear(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runScale(args []string) int {
	fs := flag.NewFlagSet("scale", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion scale <display> <mode>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Change a display's scale mode (fill, fit, stretch or center)")
		fmt.Fprintln(os.Stderr, "without restarting playback.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "scale requires a display and a mode")
		fs.Usage()
		return 2
	}
	if _, err := scale.ParseMode(fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient()
	if err := client.SetScaleMode(fs.Arg(0), fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runPause(args []string) int {
	fs := flag.NewFlagSet("pause", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion pause")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Pause playback on every display.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "pause takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.PauseAll(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runResume(args []string) int {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion resume")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Resume playback on every display.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "resume takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.ResumeAll(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runRecent(args []string) int {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion recent [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List recently used wallpaper files, most recent first.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output paths as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "recent takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	paths, err := client.GetRecent()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(paths); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return 0
}

func runPreview(args []string) int {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion preview <media-path>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Extract a still frame from a media file and print the image path.")
		fmt.Fprintln(os.Stderr, "Uses the daemon when it is running, a local extraction otherwise.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "preview requires a media path")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if imagePath, err := client.Preview(fs.Arg(0)); err == nil {
		fmt.Println(imagePath)
		return 0
	}

	// Daemon not running; extract locally.
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	outDir, err := runtimepath.PreviewDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ex := &preview.Extractor{MPVPath: settings.MPVPath, OutDir: outDir}
	imagePath, err := ex.Frame(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(imagePath)
	return 0
}

func runManager(args []string) int {
	fs := flag.NewFlagSet("manager", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion manager")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open the interactive wallpaper manager (requires a running daemon).")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "manager takes no arguments")
		fs.Usage()
		return 2
	}

	if err := manager.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  wallmotion config validate")
	fmt.Fprintln(w, "  wallmotion config print")
	fmt.Fprintln(w, "  wallmotion config power <on|off>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'wallmotion config <command> --help' for command-specific options.")
}

func runConfig(args []string) int {
	if len(args) == 0 {
		printConfigUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printConfigUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		fs.Usage = func() {
			fmt.Fprintln(os.Stderr, "Usage: wallmotion config validate")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Load the configuration file and report validation errors.")
		}
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(os.Stderr, "config validate takes no arguments")
			fs.Usage()
			return 2
		}

		path, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if _, err := config.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			return 1
		}
		fmt.Printf("%s: OK\n", path)
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		fs.Usage = func() {
			fmt.Fprintln(os.Stderr, "Usage: wallmotion config print")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Print the effective configuration (defaults merged with file).")
		}
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(os.Stderr, "config print takes no arguments")
			fs.Usage()
			return 2
		}

		settings, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(settings)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		os.Stdout.Write(out)
		return 0

	case "power":
		fs := flag.NewFlagSet("power", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		fs.Usage = func() {
			fmt.Fprintln(os.Stderr, "Usage: wallmotion config power <on|off>")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "When on, wallpapers play only while AC power is connected.")
		}
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}
		if fs.NArg() != 1 || (fs.Arg(0) != "on" && fs.Arg(0) != "off") {
			fmt.Fprintln(os.Stderr, "config power requires 'on' or 'off'")
			fs.Usage()
			return 2
		}

		path, err := store.DefaultPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		st, err := store.New(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := st.SetPowerConnectedOnly(fs.Arg(0) == "on"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		// Nudge a running daemon to pick up the change. Best effort: the
		// preference takes effect on next start otherwise.
		if err := ipc.NewClient().Reload(); err == nil {
			fmt.Println("daemon reloaded")
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage(os.Stderr)
		return 2
	}
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage: wallmotion mcp serve")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the MCP server on stdio. Requires a running daemon.")
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	if args[0] != "serve" {
		fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: wallmotion mcp serve")
		return 2
	}
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "mcp serve takes no arguments")
		return 2
	}

	srv := mcp.NewServer(ipc.NewClient())
	if err := srv.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDaemon() {
	// Load configuration
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(settings.LogLevel),
	}))

	// Open the assignment store
	storePath, err := store.DefaultPath()
	if err != nil {
		log.Fatalf("Failed to resolve store path: %v", err)
	}
	st, err := store.New(storePath)
	if err != nil {
		log.Fatalf("Failed to open assignment store: %v", err)
	}

	// Connect to display server
	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()

	log.Println("wallmotion daemon started successfully")

	factory := &playback.MPVFactory{Options: playback.Options{
		MPVPath:        settings.MPVPath,
		ExtraArgs:      settings.MPVArgs,
		ReleaseTimeout: settings.ReleaseTimeout(),
	}}

	topology := engine.NewTopologyTracker(backend, settings.TopologyPoll(), logger)
	occlusion := engine.NewOcclusionMonitor(backend, settings.OcclusionPoll(), settings.OcclusionHold(), logger)
	power := engine.NewPowerWatcher(settings.PowerPoll(), logger)

	eng := engine.New(engine.Config{
		Backend:   backend,
		Factory:   factory,
		Store:     st,
		Logger:    logger,
		Topology:  topology.Updates(),
		Occlusion: occlusion.Updates(),
		Power:     power.Updates(),
	})

	// Preview frames live under the runtime dir and are cleaned up by the OS.
	previewDir, err := runtimepath.PreviewDir()
	if err != nil {
		log.Fatalf("Failed to create preview directory: %v", err)
	}
	previewer := &preview.Extractor{MPVPath: settings.MPVPath, OutDir: previewDir}

	// Start IPC server
	ipcServer, err := ipc.NewServer(eng, st, previewer)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go topology.Run(ctx)
	go occlusion.Run(ctx)
	go power.Run(ctx)

	// Setup signal handlers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading assignments...")
				if err := eng.Reload(); err != nil {
					log.Printf("Reload failed: %v", err)
					continue
				}
				log.Println("Assignments reloaded successfully")

			case os.Interrupt, syscall.SIGTERM:
				log.Println("Shutting down wallmotion daemon...")
				ipcServer.Stop()
				cancel()
			}
		}
	}()

	// Run the engine loop (blocking). Returns after cancel once every
	// playback session has been released.
	eng.Run(ctx)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

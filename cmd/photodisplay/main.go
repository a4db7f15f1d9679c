package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/annotate"
	"github.com/NetoRibeiro/photodisplay/internal/config"
	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/library"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
	"github.com/NetoRibeiro/photodisplay/internal/profile"
	"github.com/NetoRibeiro/photodisplay/internal/slideshow"
)

var version = "dev"

const usage = `photodisplay %s

Usage:
  photodisplay list                     show the photo library
  photodisplay show <id>                show one photo in detail
  photodisplay note <id> <text>         save a note (undoable for 5s)
  photodisplay locate <id> [flags]      override the location
      -label <text>                     labeled override
      -lat <deg> -lon <deg>             coordinate override
  photodisplay revert <id>              remove the location override
  photodisplay settings [flags]         show or change playback settings
      -interval <sec>                   slideshow interval (3-60)
      -detail-only <bool>               Enter exits slideshow to detail
  photodisplay slideshow                run the slideshow (n/p/enter/q)
  photodisplay refresh                  reload the library and report counts
`

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})).With("version", version)

	base, token := cfg.APIBase, cfg.Token
	if cfg.Profile != "" {
		profiles, err := profile.Load(cfg.ProfilesFile)
		if err != nil {
			logger.Error("failed to load profiles", "error", err)
			os.Exit(1)
		}
		p, ok := profiles.Lookup(cfg.Profile)
		if !ok {
			logger.Error("unknown profile", "profile", cfg.Profile)
			os.Exit(1)
		}
		base = p.URL
		if p.Token != "" {
			token = p.Token
		}
	}

	opts := []gateway.Option{
		gateway.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second}),
	}
	if token != "" {
		opts = append(opts, gateway.WithToken(token))
	}
	gw := gateway.NewClient(base, opts...)
	settings := library.NewSettingsStore(gw)
	store := library.NewStore(gw, settings, logger)

	args := os.Args[1:]
	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &app{
		gw:       gw,
		store:    store,
		settings: settings,
		logger:   logger,
		window:   time.Duration(cfg.UndoWindowSec) * time.Second,
	}

	switch cmd {
	case "list":
		err = app.list(ctx)
	case "show":
		err = app.show(ctx, args)
	case "note":
		err = app.note(ctx, args)
	case "locate":
		err = app.locate(ctx, args)
	case "revert":
		err = app.revert(ctx, args)
	case "settings":
		err = app.settingsCmd(ctx, args)
	case "slideshow":
		err = app.slideshow(ctx)
	case "refresh":
		err = app.refresh(ctx)
	case "help", "-h", "--help":
		fmt.Printf(usage, version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprintf(os.Stderr, usage, version)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	gw       gateway.Gateway
	store    *library.Store
	settings *library.SettingsStore
	logger   *slog.Logger
	window   time.Duration
}

func (a *app) list(ctx context.Context) error {
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	snap := a.store.Snapshot()
	if len(snap.Photos) == 0 {
		fmt.Println("no photos yet")
		return nil
	}
	for i := range snap.Photos {
		rec := &snap.Photos[i]
		place := "-"
		if p := rec.DisplayPlace(); p != nil {
			place = p.Label
		}
		fmt.Printf("%-36s  %-10s  %-12s  %s\n", rec.ID, rec.Status, rec.LocationBadge(), place)
	}
	return nil
}

func (a *app) refresh(ctx context.Context) error {
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	snap := a.store.Snapshot()
	ready := 0
	for i := range snap.Photos {
		if snap.Photos[i].Ready() {
			ready++
		}
	}
	fmt.Printf("%d photos, %d ready\n", len(snap.Photos), ready)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: photodisplay show <id>")
	}
	rec, err := a.gw.GetPhoto(ctx, args[0])
	if err != nil {
		return err
	}
	printRecord(rec)
	return nil
}

func (a *app) note(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: photodisplay note <id> <text>")
	}
	id, text := args[0], strings.Join(args[1:], " ")

	if err := a.store.Load(ctx); err != nil {
		return err
	}
	rec, ok := a.store.Get(id)
	if !ok {
		return fmt.Errorf("photo %s not found", id)
	}

	editor := annotate.NewNoteEditor(a.store, a.gw, rec, annotate.WithUndoWindow(a.window))
	defer editor.Close()
	editor.SetDraft(text)
	if editor.Draft() != text {
		fmt.Printf("note truncated to %s characters\n", editor.Counter())
	}
	if err := editor.Save(ctx); err != nil {
		return err
	}
	fmt.Printf("saved (%s). press u then enter within %s to undo\n", editor.Counter(), a.window)

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(a.window):
		return nil
	case line := <-lines:
		if line != "u" || !editor.CanUndo() {
			return nil
		}
		if err := editor.Undo(ctx); err != nil {
			return err
		}
		fmt.Println("note restored")
		return nil
	}
}

func (a *app) locate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	label := fs.String("label", "", "location label")
	lat := fs.String("lat", "", "latitude")
	lon := fs.String("lon", "", "longitude")
	if len(args) < 1 {
		return fmt.Errorf("usage: photodisplay locate <id> [flags]")
	}
	id := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if err := a.store.Load(ctx); err != nil {
		return err
	}
	rec, ok := a.store.Get(id)
	if !ok {
		return fmt.Errorf("photo %s not found", id)
	}

	editor := annotate.NewLocationEditor(a.store, a.gw, rec)
	defer editor.Close()
	editor.Open()
	if *lat != "" || *lon != "" {
		editor.SetMode(photo.OverrideCoords)
		editor.SetLat(*lat)
		editor.SetLon(*lon)
		editor.SetLabel(*label)
	} else {
		editor.SetMode(photo.OverrideLabel)
		editor.SetLabel(*label)
	}
	if err := editor.Save(ctx); err != nil {
		return err
	}
	updated := editor.Record()
	printRecord(&updated)
	return nil
}

func (a *app) revert(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: photodisplay revert <id>")
	}
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	rec, ok := a.store.Get(args[0])
	if !ok {
		return fmt.Errorf("photo %s not found", args[0])
	}

	editor := annotate.NewLocationEditor(a.store, a.gw, rec)
	defer editor.Close()
	if err := editor.Revert(ctx); err != nil {
		return err
	}
	updated := editor.Record()
	printRecord(&updated)
	return nil
}

func (a *app) settingsCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	interval := fs.Int("interval", 0, "slideshow interval in seconds")
	detail := fs.String("detail-only", "", "true or false")
	if err := fs.Parse(args); err != nil {
		return err
	}

	patch := photo.SettingsPatch{}
	if *interval != 0 {
		patch.SlideshowIntervalSec = interval
	}
	switch *detail {
	case "":
	case "true":
		v := true
		patch.DetailOnly = &v
	case "false":
		v := false
		patch.DetailOnly = &v
	default:
		return fmt.Errorf("-detail-only must be true or false")
	}

	if patch.SlideshowIntervalSec == nil && patch.DetailOnly == nil {
		if err := a.settings.Load(ctx); err != nil {
			return err
		}
		cur, _ := a.settings.Current()
		fmt.Printf("interval: %ds\ndetail-only: %v\n", cur.SlideshowIntervalSec, cur.DetailOnly)
		return nil
	}

	saved, err := a.settings.Save(ctx, patch)
	if err != nil {
		return err
	}
	fmt.Printf("interval: %ds\ndetail-only: %v\n", saved.SlideshowIntervalSec, saved.DetailOnly)
	return nil
}

func (a *app) slideshow(ctx context.Context) error {
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	if len(a.store.Ready()) == 0 {
		return fmt.Errorf("no ready photos to show")
	}

	player := slideshow.NewPlayer(a.store, a.settings)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			switch strings.TrimSpace(sc.Text()) {
			case "n", "":
				player.Input(slideshow.CmdNext)
			case "p":
				player.Input(slideshow.CmdPrev)
			case "enter", "e":
				player.Input(slideshow.CmdEnter)
			case "q":
				cancel()
				return
			}
		}
	}()

	go func() {
		for frame := range player.Frames() {
			place := "-"
			if p := frame.Photo.DisplayPlace(); p != nil {
				place = p.Label
			}
			fmt.Printf("[%d/%d] %s  %s  %s\n", frame.Index+1, frame.Total, frame.Photo.ID, frame.Photo.CaptionAI, place)
		}
	}()

	rec, err := player.Run(runCtx)
	if err != nil {
		if runCtx.Err() != nil {
			return nil
		}
		return err
	}
	if rec != nil {
		fmt.Println("---")
		printRecord(rec)
	}
	return nil
}

func printRecord(rec *photo.Record) {
	fmt.Printf("id:       %s\n", rec.ID)
	fmt.Printf("status:   %s\n", rec.Status)
	if rec.CaptionAI != "" {
		fmt.Printf("caption:  %s\n", rec.CaptionAI)
	}
	if rec.NoteUser != "" {
		fmt.Printf("note:     %s\n", rec.NoteUser)
	}
	place := "-"
	if p := rec.DisplayPlace(); p != nil {
		place = p.Label
		if p.Country != "" {
			place += ", " + p.Country
		}
	}
	fmt.Printf("place:    %s (%s)\n", place, rec.LocationBadge())
	if o := rec.LocationOverride; o != nil && o.Lat != nil && o.Lon != nil {
		fmt.Printf("coords:   %.5f, %.5f\n", *o.Lat, *o.Lon)
	}
	if len(rec.Variants) > 0 {
		fmt.Printf("variants: %s\n", strings.Join(rec.Variants, ", "))
	}
	fmt.Printf("taken:    %s\n", rec.CreatedAt.Format(time.RFC3339))
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

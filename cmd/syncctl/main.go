// Command syncctl drives the dealer sync engine from the command line:
// sign in, run sync passes, drain the offline queue, print diagnostics
// or keep syncing on an interval.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ezcar24/dealersync/internal/checkpoint"
	"github.com/ezcar24/dealersync/internal/config"
	"github.com/ezcar24/dealersync/internal/diagnostics"
	"github.com/ezcar24/dealersync/internal/identity"
	"github.com/ezcar24/dealersync/internal/localdb"
	"github.com/ezcar24/dealersync/internal/localstore"
	"github.com/ezcar24/dealersync/internal/logging"
	"github.com/ezcar24/dealersync/internal/media"
	"github.com/ezcar24/dealersync/internal/metadata"
	"github.com/ezcar24/dealersync/internal/models"
	"github.com/ezcar24/dealersync/internal/queue"
	"github.com/ezcar24/dealersync/internal/remote"
	"github.com/ezcar24/dealersync/internal/syncer"
)

const usage = `usage: syncctl <command> [options]

commands:
  login <dealer-id> <token>   store the signed-in identity
  logout                      drain the queue, then sign out
  sync [force]                run one sync pass (force ignores the checkpoint)
  drain                       push pending mutations without pulling
  diagnose                    print a local-vs-remote consistency report
  watch                       sync continuously on the configured interval
  upload-photo <vehicle> <f>  upload a vehicle photo and sync its URL
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "syncctl:", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	db, err := localdb.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	meta := metadata.NewRepo(db)
	ids := identity.NewManager(meta)
	store := localstore.New(db)
	q := queue.NewRepo(db)
	checkpoints := checkpoint.NewStore(meta)
	client := remote.NewClient(cfg.RemoteBaseURL, ids, cfg.RequestTimeout.Duration)
	coordinator := syncer.New(store, q, client, checkpoints, log)
	if cfg.MediaBucket != "" {
		uploader, err := media.NewUploader(ctx, media.Options{
			Endpoint:      cfg.MediaEndpoint,
			Region:        cfg.MediaRegion,
			Bucket:        cfg.MediaBucket,
			AccessKey:     cfg.MediaAccessKey,
			SecretKey:     cfg.MediaSecretKey,
			PublicBaseURL: cfg.MediaPublicBaseURL,
		}, log)
		if err != nil {
			return err
		}
		coordinator.AttachMedia(uploader)
	}
	reporter := diagnostics.NewReporter(store, client, q, checkpoints, coordinator.IsSyncing, log)

	switch command {
	case "login":
		return login(ctx, ids)
	case "logout":
		return logout(ctx, ids, coordinator)
	case "sync":
		return runSync(ctx, ids, coordinator, hasArg("force"))
	case "drain":
		return runDrain(ctx, ids, coordinator)
	case "diagnose":
		return diagnose(ctx, ids, reporter)
	case "watch":
		return watch(ctx, ids, coordinator, cfg.SyncInterval.Duration, log)
	case "upload-photo":
		return uploadPhoto(ctx, cfg, ids, store, coordinator, log)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func login(ctx context.Context, ids *identity.Manager) error {
	args := positionalArgs()
	if len(args) < 2 {
		return errors.New("login needs <dealer-id> and <token>")
	}
	return ids.Save(ctx, identity.Identity{
		DealerID:    args[0],
		AccessToken: args[1],
	})
}

func logout(ctx context.Context, ids *identity.Manager, c *syncer.Coordinator) error {
	id, err := ids.Current(ctx)
	if err != nil {
		return err
	}

	// Push what we can before the token goes away.
	if _, err := c.ProcessOfflineQueue(ctx, id); err != nil {
		return fmt.Errorf("drain before logout: %w", err)
	}
	return ids.Clear(ctx)
}

func runSync(ctx context.Context, ids *identity.Manager, c *syncer.Coordinator, force bool) error {
	id, err := ids.Current(ctx)
	if err != nil {
		return err
	}

	res, err := c.ManualSync(ctx, id, force)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Println("sync already running, skipped")
		return nil
	}

	fmt.Printf("pushed %d, merged %d, removed %d\n", res.Pushed, res.Merged, res.Removed)
	for _, ee := range res.EntryErrors {
		fmt.Printf("  failed %s %s/%s: %v\n", ee.Operation, ee.Kind, ee.EntityID, ee.Err)
	}
	return nil
}

func runDrain(ctx context.Context, ids *identity.Manager, c *syncer.Coordinator) error {
	id, err := ids.Current(ctx)
	if err != nil {
		return err
	}

	res, err := c.ProcessOfflineQueue(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("pushed %d, %d still queued after errors\n", res.Pushed, len(res.EntryErrors))
	return nil
}

func diagnose(ctx context.Context, ids *identity.Manager, r *diagnostics.Reporter) error {
	id, err := ids.Current(ctx)
	if err != nil {
		return err
	}

	rep, err := r.Run(ctx, id.DealerID)
	if err != nil {
		return err
	}

	fmt.Printf("generated:   %s\n", rep.GeneratedAt.Format(time.RFC3339))
	if rep.LastSyncAt.IsZero() {
		fmt.Println("last sync:   never")
	} else {
		fmt.Printf("last sync:   %s\n", rep.LastSyncAt.Format(time.RFC3339))
	}
	fmt.Printf("syncing:     %v\n", rep.IsSyncing)
	fmt.Printf("queued:      %d\n", rep.OfflineQueueCount)
	for _, s := range rep.OfflineQueueSummary {
		fmt.Printf("  %-24s %-8s %d\n", s.Kind, s.Operation, s.Count)
	}
	for _, e := range rep.StuckEntries {
		fmt.Printf("stuck:       %s %s/%s after %d attempts: %s\n",
			e.Operation, e.Kind, e.EntityID, e.Attempts, e.LastError)
	}
	fmt.Println("entity counts (local / remote / delta):")
	for _, ec := range rep.EntityCounts {
		if ec.Remote == nil {
			fmt.Printf("  %-24s %6d      ?      ?\n", ec.Kind, ec.Local)
			continue
		}
		fmt.Printf("  %-24s %6d %6d %+6d\n", ec.Kind, ec.Local, *ec.Remote, *ec.Delta)
	}
	if rep.RemoteFetchError != "" {
		fmt.Printf("remote fetch error: %s\n", rep.RemoteFetchError)
	}
	return nil
}

func watch(ctx context.Context, ids *identity.Manager, c *syncer.Coordinator, interval time.Duration, log logging.Logger) error {
	id, err := ids.Current(ctx)
	if err != nil {
		return err
	}

	log.Info(ctx, "watch started", "dealer_id", id.DealerID, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.ManualSync(ctx, id, false); err != nil {
			log.Error(ctx, "sync pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			log.Info(ctx, "watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func uploadPhoto(ctx context.Context, cfg *config.Config, ids *identity.Manager, store *localstore.Store, c *syncer.Coordinator, log logging.Logger) error {
	args := positionalArgs()
	if len(args) < 2 {
		return errors.New("upload-photo needs <vehicle-id> and <file>")
	}
	vehicleID, path := args[0], args[1]

	id, err := ids.Current(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	uploader, err := media.NewUploader(ctx, media.Options{
		Endpoint:      cfg.MediaEndpoint,
		Region:        cfg.MediaRegion,
		Bucket:        cfg.MediaBucket,
		AccessKey:     cfg.MediaAccessKey,
		SecretKey:     cfg.MediaSecretKey,
		PublicBaseURL: cfg.MediaPublicBaseURL,
	}, log)
	if err != nil {
		return err
	}

	url, err := uploader.UploadVehicleImage(ctx, id.DealerID, vehicleID, data)
	if err != nil {
		return err
	}

	rec, err := store.Get(ctx, models.KindVehicle, vehicleID)
	if err != nil {
		return err
	}

	var v models.Vehicle
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return err
	}
	v.PhotoURL = &url
	v.Touch(time.Now())

	if err := c.UpsertVehicle(ctx, id, v); err != nil {
		return err
	}

	fmt.Println(url)
	return nil
}

func slogLevel(level string) slog.Level {
	switch level {
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

// positionalArgs returns the arguments after the command, skipping flags
// and their values.
func positionalArgs() []string {
	var out []string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 0 && args[i][0] == '-' {
			if i+1 < len(args) && (len(args[i+1]) == 0 || args[i+1][0] != '-') {
				i++
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}

func hasArg(want string) bool {
	for _, a := range os.Args[2:] {
		if a == want {
			return true
		}
	}
	return false
}

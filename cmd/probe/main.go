package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"arenagrid.ai/internal/config"
	"arenagrid.ai/internal/objects"
	"arenagrid.ai/internal/objects/arena"
	"arenagrid.ai/internal/persistence/indexdb"
	"arenagrid.ai/internal/persistence/journal"
	"arenagrid.ai/internal/transport/hostrpc"
)

// host is what the probe needs from a connection: queries plus listing.
type host interface {
	objects.Host
	objects.Directory
}

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code so deferred closes run before os.Exit.
func realMain() int {
	var (
		configPath = flag.String("config", "", "path to arenagrid.yaml (optional)")
		url        = flag.String("url", "", "host websocket url (overrides host.url)")
		originID   = flag.String("origin", "", "id of the origin object (default: first non-flag object)")
		rng        = flag.Int("range", 5, "range for findInRange")
		strict     = flag.Bool("strict", false, "fail on unconvertible host results")
		journalDir = flag.String("journal", "", "journal calls to this directory (overrides journal.dir)")
		indexPath  = flag.String("index_db", "", "sqlite call index path (overrides journal.index_db)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[probe] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("load config: %v", err)
		return 2
	}
	if v := strings.TrimSpace(*url); v != "" {
		cfg.Host.URL = v
	}
	if *strict {
		cfg.Query.Strict = true
	}
	if v := strings.TrimSpace(*journalDir); v != "" {
		cfg.Journal.Dir = v
	}
	if v := strings.TrimSpace(*indexPath); v != "" {
		cfg.Journal.IndexDB = v
	}
	if *rng < 0 || *rng > objects.GridMax {
		logger.Printf("-range %d out of bounds", *rng)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := hostrpc.Dial(ctx, hostrpc.ClientConfig{
		URL:            cfg.Host.URL,
		ClientName:     cfg.Host.ClientName,
		CallTimeout:    cfg.Host.CallTimeout,
		ValidateFrames: cfg.Host.ValidateFrames,
		Logger:         logger,
	})
	if err != nil {
		logger.Printf("dial: %v", err)
		return 1
	}
	defer client.Close()

	h, extra, closeJournal, err := openJournal(client, cfg.Journal, logger)
	if err != nil {
		logger.Printf("journal: %v", err)
		return 1
	}
	defer closeJournal()

	if err := run(h, cfg, *originID, uint8(*rng), extra); err != nil {
		logger.Printf("probe: %v", err)
		return 1
	}
	return 0
}

// openJournal wraps h in a Recorder when a journal directory or index is
// configured. The returned close func flushes every sink and is safe to
// call when nothing was opened.
func openJournal(h host, cfg config.JournalConfig, logger *log.Logger) (host, []objects.QueryOption, func(), error) {
	var (
		sinks   []journal.Sink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Printf("close journal: %v", err)
			}
		}
	}
	if cfg.Dir != "" {
		fs := journal.NewFileSink(cfg.Dir)
		sinks = append(sinks, fs)
		closers = append(closers, fs.Close)
	}
	if cfg.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexDB)
		if err != nil {
			closeAll()
			return nil, nil, func() {}, fmt.Errorf("open index: %w", err)
		}
		sinks = append(sinks, idx)
		closers = append(closers, idx.Close)
	}
	if len(sinks) == 0 {
		return h, nil, closeAll, nil
	}
	rec := journal.NewRecorder(h, journal.MultiSink(sinks...), logger)
	logger.Printf("journal session %s", rec.Session())
	return rec, []objects.QueryOption{objects.WithObserver(rec)}, closeAll, nil
}

func run(h host, cfg config.Config, originID string, rng uint8, extra []objects.QueryOption) error {
	origin, err := findOrigin(h, originID)
	if err != nil {
		return err
	}
	refs, err := h.ObjectsByClass(objects.ClassBonusFlag)
	if err != nil {
		return fmt.Errorf("list flags: %w", err)
	}
	flags := make([]arena.BonusFlag, 0, len(refs))
	for _, r := range refs {
		if f, ok := arena.FromGameObject(objects.NewGameObject(h, r)); ok {
			flags = append(flags, f)
		}
	}
	opts := cfg.QueryOptions(extra...)
	pathOpts := cfg.PathOptions()

	pos, err := origin.Pos()
	if err != nil {
		return fmt.Errorf("origin position: %w", err)
	}
	id, _ := origin.ID()
	fmt.Printf("origin %s id=%s pos=%s flags=%d\n", origin, id, pos, len(flags))

	inRange, err := objects.FindInRange(origin, flags, rng, opts...)
	if err != nil {
		return fmt.Errorf("findInRange: %w", err)
	}
	fmt.Printf("findInRange(%d): %d\n", rng, len(inRange))
	for _, f := range inRange {
		printFlag("  ", f)
	}

	byRange, ok, err := objects.FindClosestByRange(origin, flags, opts...)
	if err != nil {
		return fmt.Errorf("findClosestByRange: %w", err)
	}
	fmt.Print("findClosestByRange: ")
	printMaybe(byRange, ok)

	byPath, ok, err := objects.FindClosestByPath(origin, flags, pathOpts, opts...)
	if err != nil {
		return fmt.Errorf("findClosestByPath: %w", err)
	}
	fmt.Print("findClosestByPath: ")
	printMaybe(byPath, ok)

	if ok {
		res, err := origin.FindPathTo(byPath, pathOpts)
		if err != nil {
			return fmt.Errorf("findPath: %w", err)
		}
		fmt.Printf("findPath: steps=%d cost=%d ops=%d incomplete=%v\n", len(res.Path), res.Cost, res.Ops, res.Incomplete)
	}
	return nil
}

// findOrigin picks the object whose normalized id equals want, or the first
// object that is not a flag when want is empty.
func findOrigin(h host, want string) (objects.GameObject, error) {
	refs, err := h.ObjectsByClass(objects.ClassGameObject)
	if err != nil {
		return objects.GameObject{}, fmt.Errorf("list objects: %w", err)
	}
	for _, r := range refs {
		o := objects.NewGameObject(h, r)
		if want == "" {
			if r.Class != objects.ClassBonusFlag {
				return o, nil
			}
			continue
		}
		id, err := o.ID()
		if err != nil {
			continue
		}
		if string(id) == want {
			return o, nil
		}
	}
	if want == "" {
		return objects.GameObject{}, fmt.Errorf("host has no candidate origin")
	}
	return objects.GameObject{}, fmt.Errorf("no object with id %q", want)
}

func printMaybe(f arena.BonusFlag, ok bool) {
	if !ok {
		fmt.Println("none")
		return
	}
	printFlag("", f)
}

func printFlag(indent string, f arena.BonusFlag) {
	id, err := f.ID()
	if err != nil {
		fmt.Printf("%s%s id=? (%v)\n", indent, f, err)
		return
	}
	pos, _ := f.Pos()
	my, _ := f.My()
	part, _ := f.BonusType()
	ttd, decays, _ := f.TicksToDecay()
	decay := "never"
	if decays {
		decay = fmt.Sprintf("%d", ttd)
	}
	fmt.Printf("%s%s id=%s pos=%s owner=%s bonus=%s decay=%s\n", indent, f, id, pos, my, part, decay)
}

package journal

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
	"arenagrid.ai/internal/protocol"
)

var (
	_ objects.Host          = (*Recorder)(nil)
	_ objects.Directory     = (*Recorder)(nil)
	_ objects.QueryObserver = (*Recorder)(nil)
)

// Recorder wraps a host and journals every call made through it. Pass it to
// the query functions with objects.WithObserver to journal dropped results
// too. Sink failures are logged and never reach the caller.
type Recorder struct {
	host    objects.Host
	sink    Sink
	log     *log.Logger
	session string
	now     func() time.Time

	seq       atomic.Uint64
	sinkFails atomic.Uint64
}

func NewRecorder(h objects.Host, sink Sink, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(log.Writer(), "[journal] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Recorder{
		host:    h,
		sink:    sink,
		log:     logger,
		session: ulid.Make().String(),
		now:     time.Now,
	}
}

func (r *Recorder) Session() string { return r.session }

// SinkFailures counts entries the sink refused.
func (r *Recorder) SinkFailures() uint64 { return r.sinkFails.Load() }

func (r *Recorder) record(e Entry, start time.Time, err error) {
	e.Session = r.session
	e.Seq = r.seq.Add(1)
	e.Time = start.UTC()
	if e.Kind == "" {
		e.Kind = KindCall
	}
	if !start.IsZero() && e.Kind == KindCall {
		e.Micros = r.now().Sub(start).Microseconds()
	}
	if err != nil {
		e.Code = protocol.CodeOf(err)
		e.Err = err.Error()
	}
	if serr := r.sink.Append(e); serr != nil {
		if r.sinkFails.Add(1) == 1 {
			r.log.Printf("journal sink failed (further failures are counted, not logged): %v", serr)
		}
	}
}

func found(v hostval.Value) int {
	if v.IsNullish() {
		return 0
	}
	return 1
}

func (r *Recorder) Attr(obj hostval.Ref, name string) (hostval.Value, error) {
	start := r.now()
	v, err := r.host.Attr(obj, name)
	r.record(Entry{Op: objects.OpAttr, Origin: &obj, Name: name, Results: found(v)}, start, err)
	return v, err
}

func (r *Recorder) FindInRange(origin hostval.Ref, targets []hostval.Value, rng uint8) ([]hostval.Value, error) {
	start := r.now()
	vals, err := r.host.FindInRange(origin, targets, rng)
	r.record(Entry{Op: objects.OpFindInRange, Origin: &origin, Targets: len(targets), Results: len(vals)}, start, err)
	return vals, err
}

func (r *Recorder) FindClosestByRange(origin hostval.Ref, targets []hostval.Value) (hostval.Value, error) {
	start := r.now()
	v, err := r.host.FindClosestByRange(origin, targets)
	r.record(Entry{Op: objects.OpFindClosestByRange, Origin: &origin, Targets: len(targets), Results: found(v)}, start, err)
	return v, err
}

func (r *Recorder) FindClosestByPath(origin hostval.Ref, targets []hostval.Value, opts *objects.FindPathOptions) (hostval.Value, error) {
	start := r.now()
	v, err := r.host.FindClosestByPath(origin, targets, opts)
	r.record(Entry{Op: objects.OpFindClosestByPath, Origin: &origin, Targets: len(targets), Results: found(v)}, start, err)
	return v, err
}

func (r *Recorder) FindPath(origin hostval.Ref, goal hostval.Value, opts *objects.FindPathOptions) (objects.SearchResults, error) {
	start := r.now()
	res, err := r.host.FindPath(origin, goal, opts)
	r.record(Entry{Op: objects.OpFindPath, Origin: &origin, Targets: 1, Results: len(res.Path)}, start, err)
	return res, err
}

func (r *Recorder) GetRange(origin hostval.Ref, target hostval.Value) (uint8, error) {
	start := r.now()
	rng, err := r.host.GetRange(origin, target)
	r.record(Entry{Op: objects.OpGetRange, Origin: &origin, Targets: 1, Results: int(rng)}, start, err)
	return rng, err
}

// ObjectsByClass forwards to the wrapped host when it is also a Directory.
func (r *Recorder) ObjectsByClass(class string) ([]hostval.Ref, error) {
	start := r.now()
	dir, ok := r.host.(objects.Directory)
	if !ok {
		err := fmt.Errorf("%w: %w: host does not list objects", objects.ErrHost, objects.ErrUnsupported)
		r.record(Entry{Op: objects.OpObjectsByClass, Name: class}, start, err)
		return nil, err
	}
	refs, err := dir.ObjectsByClass(class)
	r.record(Entry{Op: objects.OpObjectsByClass, Name: class, Results: len(refs)}, start, err)
	return refs, err
}

// ObserveDrops journals results the query layer could not map back to a
// candidate.
func (r *Recorder) ObserveDrops(op string, dropped int) {
	r.record(Entry{Kind: KindDrops, Op: op, Dropped: dropped}, r.now(), nil)
}

// Package backup writes JSON snapshots of the saved ledger to a blob store and
// restores them into empty storage.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"payorledger/internal/blob"
	"payorledger/internal/ledger"
	"payorledger/internal/syncer"
	"payorledger/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Format is the snapshot schema version.
const Format = 1

const (
	defaultPrefix = "backups/"
	stampLayout   = "20060102T150405Z"
	contentType   = "application/json"
)

var (
	// ErrNotEmpty is returned when a restore target already holds data.
	ErrNotEmpty = errors.New("backup: target storage is not empty")
	// ErrUnknownFormat is returned for snapshots written by a newer version.
	ErrUnknownFormat = errors.New("backup: unknown snapshot format")
)

// Snapshot is the serialized form of a saved ledger.
type Snapshot struct {
	Format  int         `json:"format"`
	ID      string      `json:"id"`
	Created time.Time   `json:"created"`
	Payors  []PayorDoc  `json:"payors"`
	Headers []HeaderDoc `json:"headers"`
	Rows    []RowDoc    `json:"rows"`
}

// PayorDoc is a payor in a snapshot.
type PayorDoc struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// HeaderDoc is a header and its subheaders.
type HeaderDoc struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Order      int            `json:"order"`
	Subheaders []SubheaderDoc `json:"subheaders,omitempty"`
}

// SubheaderDoc is a subheader in a snapshot.
type SubheaderDoc struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// RowDoc is a row and its cell entries.
type RowDoc struct {
	OrNum   int       `json:"or_num"`
	Date    string    `json:"date"`
	PayorID int64     `json:"payor_id"`
	Label   string    `json:"label"`
	Comment string    `json:"comment,omitempty"`
	Cells   []CellDoc `json:"cells,omitempty"`
}

// CellDoc is a cell entry in a snapshot.
type CellDoc struct {
	SubheaderID int64           `json:"subheader_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// Info describes a stored backup.
type Info struct {
	ID      string
	Key     string
	Created time.Time
	Size    int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix stores backups under prefix instead of "backups/".
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		m.prefix = prefix
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// Manager creates, lists, and restores backups in one blob store.
type Manager struct {
	store  blob.Store
	prefix string
	now    func() time.Time
}

// New returns a manager writing to store.
func New(store blob.Store, opts ...Option) *Manager {
	m := &Manager{store: store, prefix: defaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Capture converts the live entities of l into a snapshot.
func Capture(l *ledger.Ledger) *Snapshot {
	v := l.View()
	snap := &Snapshot{Format: Format}
	for _, p := range v.Payors() {
		snap.Payors = append(snap.Payors, PayorDoc{ID: int64(p.ID), Name: p.Name, Label: string(p.Label)})
	}
	for _, h := range v.Headers() {
		doc := HeaderDoc{ID: int64(h.ID), Name: h.Name, Order: h.Order}
		for _, s := range h.Subheaders {
			doc.Subheaders = append(doc.Subheaders, SubheaderDoc{ID: int64(s.ID), Name: s.Name, Order: s.Order})
		}
		snap.Headers = append(snap.Headers, doc)
	}
	for _, r := range v.Rows() {
		doc := RowDoc{
			OrNum:   int(r.OrNum),
			Date:    r.Date.Format(domain.DateLayout),
			PayorID: int64(r.PayorID),
			Label:   string(r.Label),
			Comment: r.Comment,
		}
		for _, c := range r.Cells {
			doc.Cells = append(doc.Cells, CellDoc{SubheaderID: int64(c.SubheaderID), Amount: c.Amount})
		}
		snap.Rows = append(snap.Rows, doc)
	}
	return snap
}

// Ledger rebuilds the snapshot as a ledger whose entities are all tagged
// Added and keep their stored ids, ready to be saved into empty storage.
func (s *Snapshot) Ledger() (*ledger.Ledger, error) {
	l := ledger.New()
	for _, p := range s.Payors {
		l.AttachPayor(&domain.Payor{ID: domain.PayorID(p.ID), Name: p.Name, Label: domain.PayorLabel(p.Label), State: domain.Added})
	}
	for _, h := range s.Headers {
		l.AttachHeader(&domain.Header{ID: domain.HeaderID(h.ID), Name: h.Name, Order: h.Order, State: domain.Added})
		for _, sub := range h.Subheaders {
			sh := &domain.Subheader{ID: domain.SubheaderID(sub.ID), HeaderID: domain.HeaderID(h.ID), Name: sub.Name, Order: sub.Order, State: domain.Added}
			if _, err := l.AttachSubheader(sh); err != nil {
				return nil, err
			}
		}
	}
	for _, r := range s.Rows {
		date, err := time.Parse(domain.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.OrNum, err)
		}
		row := &domain.Row{
			OrNum:   domain.OrNum(r.OrNum),
			Date:    date,
			PayorID: domain.PayorID(r.PayorID),
			Label:   domain.RowLabel(r.Label),
			Comment: r.Comment,
			State:   domain.Added,
		}
		l.AttachRow(row)
		for _, c := range r.Cells {
			ledger.AttachCell(row, &domain.CellEntry{SubheaderID: domain.SubheaderID(c.SubheaderID), Amount: c.Amount, State: domain.Added})
		}
	}
	return l, nil
}

// Create loads the saved ledger from src and stores it as a new backup.
func (m *Manager) Create(ctx context.Context, src domain.Storage) (Info, error) {
	l, err := syncer.Load(ctx, src)
	if err != nil {
		return Info{}, fmt.Errorf("backup: %w", err)
	}
	return m.Write(ctx, Capture(l))
}

// Write stores snap under a fresh id.
func (m *Manager) Write(ctx context.Context, snap *Snapshot) (Info, error) {
	snap.Format = Format
	snap.ID = uuid.NewString()
	snap.Created = m.now().UTC().Truncate(time.Second)
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Info{}, err
	}
	key := m.prefix + snap.Created.Format(stampLayout) + "-" + snap.ID + ".json"
	bi, err := m.store.Put(ctx, key, bytes.NewReader(b), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"backup-id": snap.ID, "rows": fmt.Sprint(len(snap.Rows))},
	})
	if err != nil {
		return Info{}, fmt.Errorf("backup: %w", err)
	}
	return Info{ID: snap.ID, Key: key, Created: snap.Created, Size: bi.Size}, nil
}

// List returns every backup, oldest first.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	objs, err := m.store.List(ctx, m.prefix)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	var out []Info
	for _, o := range objs {
		info, ok := m.parseKey(o.Key)
		if !ok {
			continue
		}
		info.Size = o.Size
		out = append(out, info)
	}
	return out, nil
}

func (m *Manager) parseKey(key string) (Info, bool) {
	name, ok := strings.CutPrefix(key, m.prefix)
	if !ok {
		return Info{}, false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok {
		return Info{}, false
	}
	stamp, id, ok := strings.Cut(name, "-")
	if !ok {
		return Info{}, false
	}
	created, err := time.Parse(stampLayout, stamp)
	if err != nil {
		return Info{}, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return Info{}, false
	}
	return Info{ID: id, Key: key, Created: created}, true
}

// Read fetches and decodes the backup with the given id.
func (m *Manager) Read(ctx context.Context, id string) (*Snapshot, error) {
	infos, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID != id {
			continue
		}
		_, rc, err := m.store.Get(ctx, info.Key)
		if err != nil {
			return nil, fmt.Errorf("backup %s: %w", id, err)
		}
		defer rc.Close()
		var snap Snapshot
		if err := json.NewDecoder(rc).Decode(&snap); err != nil {
			return nil, fmt.Errorf("backup %s: decode: %w", id, err)
		}
		if snap.Format != Format {
			return nil, fmt.Errorf("backup %s: format %d: %w", id, snap.Format, ErrUnknownFormat)
		}
		return &snap, nil
	}
	return nil, fmt.Errorf("backup %s: %w", id, blob.ErrNotFound)
}

// Restore writes the backup with the given id into dst, which must be empty.
func (m *Manager) Restore(ctx context.Context, id string, dst domain.Storage, opts ...syncer.Option) (syncer.Report, error) {
	for _, t := range domain.Tables {
		recs, err := dst.SelectAll(ctx, t)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			return nil, fmt.Errorf("%w: %s has %d records", ErrNotEmpty, t, len(recs))
		}
	}
	snap, err := m.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := snap.Ledger()
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", id, err)
	}
	return syncer.New(dst, opts...).Save(ctx, l)
}

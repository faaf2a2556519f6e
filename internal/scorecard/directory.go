package scorecard

import (
	"sort"
	"strings"
	"sync"

	"wifiscore/internal/model"
)

// Directory maps BSSIDs and SSIDs to records. Both indexes draw IDs from one
// counter, so no two records ever share an ID.
type Directory struct {
	mu      sync.RWMutex
	byBSSID map[string]*Record
	bySSID  map[string]*Record
	lastID  int64
	onNew   func(*Record)
}

type DirectoryOption func(*Directory)

// WithCreateHook registers fn to be called, outside the directory lock, for every new record.
func WithCreateHook(fn func(*Record)) DirectoryOption {
	return func(d *Directory) { d.onNew = fn }
}

func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		byBSSID: make(map[string]*Record),
		bySSID:  make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func bssidKey(bssid string) string {
	if n, ok := NormalizeBSSID(bssid); ok {
		return n
	}
	return strings.ToLower(strings.TrimSpace(bssid))
}

// FetchByBSSID returns the record for bssid, creating it with the next ID on first sight.
func (d *Directory) FetchByBSSID(bssid string) *Record {
	return d.fetch(d.byBSSID, model.RecordBSSID, bssidKey(bssid))
}

// FetchBySSID returns the record for the network name, creating it on first sight.
func (d *Directory) FetchBySSID(ssid string) *Record {
	return d.fetch(d.bySSID, model.RecordSSID, ssid)
}

func (d *Directory) fetch(index map[string]*Record, kind model.RecordKind, key string) *Record {
	d.mu.RLock()
	r, ok := index[key]
	d.mu.RUnlock()
	if ok {
		return r
	}
	d.mu.Lock()
	if r, ok := index[key]; ok {
		d.mu.Unlock()
		return r
	}
	d.lastID++
	r = newRecord(d.lastID, kind, key)
	switch kind {
	case model.RecordBSSID:
		r.bssid = key
	case model.RecordSSID:
		r.ssid = key
	}
	index[key] = r
	hook := d.onNew
	d.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	return r
}

func (d *Directory) LookupBSSID(bssid string) (*Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byBSSID[bssidKey(bssid)]
	return r, ok
}

func (d *Directory) LookupSSID(ssid string) (*Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.bySSID[ssid]
	return r, ok
}

func (d *Directory) BSSIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.byBSSID)
}

func (d *Directory) SSIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.bySSID)
}

// Len returns the number of BSSID and SSID records.
func (d *Directory) Len() (bssids int, ssids int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byBSSID), len(d.bySSID)
}

// Snapshots walks every record, BSSIDs first.
func (d *Directory) Snapshots() []model.RecordSnapshot {
	d.mu.RLock()
	records := make([]*Record, 0, len(d.byBSSID)+len(d.bySSID))
	for _, k := range sortedKeys(d.byBSSID) {
		records = append(records, d.byBSSID[k])
	}
	for _, k := range sortedKeys(d.bySSID) {
		records = append(records, d.bySSID[k])
	}
	d.mu.RUnlock()
	out := make([]model.RecordSnapshot, 0, len(records))
	for _, r := range records {
		out = append(out, r.Snapshot())
	}
	return out
}

// Restore loads persisted records. Existing keys are left untouched, and the ID
// counter moves past the largest ID seen. It returns the number of records added.
func (d *Directory) Restore(snaps []model.RecordSnapshot) int {
	added := 0
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make(map[int64]struct{}, len(d.byBSSID)+len(d.bySSID))
	for _, r := range d.byBSSID {
		ids[r.id] = struct{}{}
	}
	for _, r := range d.bySSID {
		ids[r.id] = struct{}{}
	}
	for _, snap := range snaps {
		if snap.ID <= 0 {
			continue
		}
		if _, dup := ids[snap.ID]; dup {
			continue
		}
		var index map[string]*Record
		key := snap.Key
		switch snap.Kind {
		case model.RecordBSSID:
			index = d.byBSSID
			key = bssidKey(key)
		case model.RecordSSID:
			index = d.bySSID
		default:
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		r := newRecord(snap.ID, snap.Kind, key)
		r.restore(snap)
		index[key] = r
		ids[snap.ID] = struct{}{}
		if snap.ID > d.lastID {
			d.lastID = snap.ID
		}
		added++
	}
	return added
}

func sortedKeys(m map[string]*Record) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package visit

import (
	"strconv"
	"time"

	"github.com/letrongvang/go-profile-card/store"
)

// visitedAtKey is the localStorage key holding the last counted visit, as
// epoch milliseconds.
const visitedAtKey = "visited_at_v1"

// Recorder persists the device's last counted visit time.
type Recorder struct {
	kv store.LocalStorage
}

func NewRecorder(kv store.LocalStorage) *Recorder {
	return &Recorder{kv: kv}
}

// LastCountedAt returns the last recorded visit time, or the zero time when
// there is no usable record.
func (r *Recorder) LastCountedAt() time.Time {
	raw, ok := r.kv.Get(visitedAtKey)
	if !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// MarkCounted overwrites the record with t. Called only after an increment
// actually succeeded.
func (r *Recorder) MarkCounted(t time.Time) error {
	return r.kv.Set(visitedAtKey, strconv.FormatInt(t.UnixMilli(), 10))
}

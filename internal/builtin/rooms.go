package builtin

import (
	"context"
	"strconv"
	"strings"

	"github.com/joshwoo0/gsa-bot/internal/storage"
)

// Rooms finds the group channel of each student cohort. Configured rooms
// win; otherwise a seen group channel named after the cohort number is used.
type Rooms struct {
	configured map[int]string
	store      storage.Store
}

func NewRooms(configured map[int]string, store storage.Store) *Rooms {
	cp := make(map[int]string, len(configured))
	for n, id := range configured {
		if id = strings.TrimSpace(id); id != "" {
			cp[n] = id
		}
	}
	return &Rooms{configured: cp, store: store}
}

func (r *Rooms) Lookup(ctx context.Context, cohort int) (string, bool) {
	if id, ok := r.configured[cohort]; ok {
		return id, true
	}
	if r.store == nil {
		return "", false
	}
	ch, ok, err := r.store.ChannelByName(ctx, strconv.Itoa(cohort))
	if err != nil || !ok || ch.Direct {
		return "", false
	}
	return ch.ID, true
}

// All returns every known cohort room keyed by cohort number.
func (r *Rooms) All(ctx context.Context) map[int]string {
	out := map[int]string{}
	if r.store != nil {
		if chans, err := r.store.Channels(ctx); err == nil {
			seen := map[int]storage.ChannelRecord{}
			for _, ch := range chans {
				n, err := strconv.Atoi(strings.TrimSpace(ch.Name))
				if err != nil || n <= 0 || ch.Direct {
					continue
				}
				if prev, dup := seen[n]; dup && prev.LastSeen.After(ch.LastSeen) {
					continue
				}
				seen[n] = ch
				out[n] = ch.ID
			}
		}
	}
	for n, id := range r.configured {
		out[n] = id
	}
	return out
}

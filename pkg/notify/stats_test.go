package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

func TestStats_TopTypes(t *testing.T) {
	t.Parallel()

	stats := &notify.Stats{
		ByType: map[notify.Type]int{
			notify.TypeLevelUp:         3,
			notify.TypeTeamUpdate:      7,
			notify.TypeHubAnnouncement: 3,
			notify.TypeTaskAssigned:    1,
		},
	}

	t.Run("descending with alphabetical tie-break", func(t *testing.T) {
		t.Parallel()
		top := stats.TopTypes(0)
		assert.Equal(t, []notify.TypeCount{
			{Type: notify.TypeTeamUpdate, Count: 7},
			{Type: notify.TypeHubAnnouncement, Count: 3},
			{Type: notify.TypeLevelUp, Count: 3},
			{Type: notify.TypeTaskAssigned, Count: 1},
		}, top)
	})

	t.Run("truncates to n", func(t *testing.T) {
		t.Parallel()
		top := stats.TopTypes(2)
		assert.Len(t, top, 2)
		assert.Equal(t, notify.TypeTeamUpdate, top[0].Type)
	})

	t.Run("empty stats", func(t *testing.T) {
		t.Parallel()
		empty := &notify.Stats{}
		assert.Empty(t, empty.TopTypes(5))
	})
}

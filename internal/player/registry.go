package player

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry holds one player per guild. Players live as long as the registry.
type Registry struct {
	players *xsync.MapOf[string, *Player]
}

func NewRegistry() *Registry {
	return &Registry{players: xsync.NewMapOf[string, *Player]()}
}

// Ensure returns the player of guildID, creating an idle one if needed.
func (r *Registry) Ensure(guildID string) *Player {
	p, _ := r.players.LoadOrCompute(guildID, func() *Player {
		return newPlayer(guildID)
	})
	return p
}

func (r *Registry) Get(guildID string) (*Player, bool) {
	return r.players.Load(guildID)
}

func (r *Registry) Len() int {
	return r.players.Size()
}

// Playing counts the players that are currently playing.
func (r *Registry) Playing() int {
	playing := 0
	r.players.Range(func(_ string, p *Player) bool {
		if p.Status() == StatusPlaying {
			playing++
		}
		return true
	})
	return playing
}

// StopAll stops every player and returns how many were playing.
func (r *Registry) StopAll() int {
	stopped := 0
	r.players.Range(func(_ string, p *Player) bool {
		if p.Stop() {
			stopped++
		}
		return true
	})
	return stopped
}

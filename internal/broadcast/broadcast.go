package broadcast

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

// subscriberBuffer - pending snapshots per subscriber before old ones are dropped.
const subscriberBuffer = 8

// Broadcaster fans the latest game snapshot out to any number of passive
// subscribers. Publishing never blocks: a subscriber that falls behind loses
// the oldest pending snapshot, never the ordering.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan *entity.Game
}

func New() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan *entity.Game),
	}
}

// Subscribe - registers a subscriber and returns its channel together with a
// cancel function. Cancel is idempotent and closes the channel.
func (that *Broadcaster) Subscribe() (<-chan *entity.Game, func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.nextID
	that.nextID++

	ch := make(chan *entity.Game, subscriberBuffer)
	that.subs[id] = ch

	cancel := func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		if sub, ok := that.subs[id]; ok {
			delete(that.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish - delivers a snapshot to every current subscriber. With no
// subscribers this is a no-op.
func (that *Broadcaster) Publish(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, ch := range that.subs {
		select {
		case ch <- game:
		default:
			// full buffer: drop the oldest pending snapshot and retry once
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- game:
			default:
			}
		}
	}
}

// Len - current subscriber count.
func (that *Broadcaster) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.subs)
}

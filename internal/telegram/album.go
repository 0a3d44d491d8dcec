package telegram

import (
	"sync"
	"time"
)

// Telegram delivers album photos as separate updates sharing a media
// group ID, with the caption only on one of them. Buffer them and flush
// once the group has been quiet for a moment.
const albumDebounce = 1500 * time.Millisecond

type albumEntry struct {
	paths   []string
	caption string
	timer   *time.Timer
}

// AlbumBuffer groups downloaded album photos by media group ID and
// invokes flush with the full set once no more arrive.
type AlbumBuffer struct {
	mu       sync.Mutex
	groups   map[string]*albumEntry
	debounce time.Duration
	flush    func(chatID int64, paths []string, caption string)
}

func NewAlbumBuffer(flush func(chatID int64, paths []string, caption string)) *AlbumBuffer {
	return &AlbumBuffer{
		groups:   make(map[string]*albumEntry),
		debounce: albumDebounce,
		flush:    flush,
	}
}

// Add records one downloaded photo of an album. Each arrival resets the
// group's debounce timer.
func (b *AlbumBuffer) Add(chatID int64, groupID, path, caption string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.groups[groupID]
	if !ok {
		e = &albumEntry{}
		b.groups[groupID] = e
	}
	e.paths = append(e.paths, path)
	if caption != "" {
		e.caption = caption
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		e, ok := b.groups[groupID]
		if ok {
			delete(b.groups, groupID)
		}
		b.mu.Unlock()
		if ok {
			b.flush(chatID, e.paths, e.caption)
		}
	})
}

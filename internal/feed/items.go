package feed

import (
	"strings"

	"github.com/Borislavv/go-ash-feed/model"
)

const maxRating = 5

// mergeLocked appends the part of a cumulative page beyond what is already held.
// Nothing beyond the authoritative total is ever appended.
func (f *Feed) mergeLocked(page *model.Page) (added int) {
	known := len(f.state.Items)

	var fresh []model.Review
	if len(page.Items) > known {
		fresh = page.Items[known:]
	}
	if room := page.Count - known; len(fresh) > room {
		fresh = fresh[:max(room, 0)]
	}

	for _, review := range fresh {
		item := f.newItem(review)
		f.index[item.ID] = len(f.state.Items)
		f.state.Items = append(f.state.Items, item)
	}

	f.state.Offset += len(fresh)
	f.state.Total = page.Count
	f.state.ShouldLoad = f.state.Offset < page.Count
	if f.state.ShouldLoad {
		f.state.Phase = model.PhaseIdle
	} else {
		f.state.Phase = model.PhaseExhausted
	}
	return len(fresh)
}

func (f *Feed) newItem(r model.Review) model.ReviewItem {
	var photos []string
	if len(r.PhotosURLs) > 0 {
		photos = append([]string(nil), r.PhotosURLs...)
	}
	return model.ReviewItem{
		ID:        model.NewItemID(),
		FullName:  strings.TrimSpace(r.FirstName + " " + r.LastName),
		Rating:    min(max(r.Rating, 0), maxRating),
		Text:      r.Text,
		Created:   r.Created,
		AvatarURL: r.AvatarURL,
		PhotoURLs: photos,
		MaxLines:  f.cfg.CollapsedLines,
	}
}

package model

// Phase is the pagination phase of a feed.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// FeedState is a snapshot of a paginated feed.
type FeedState struct {
	Items []ReviewItem

	// Offset is the number of items already consumed from the source.
	Offset int

	// Total is the last authoritative total reported by the source.
	Total int

	// ShouldLoad is true iff no load is in flight and more pages may exist.
	ShouldLoad bool

	Phase Phase
}

// NewFeedState returns the empty state a feed starts from.
func NewFeedState() FeedState {
	return FeedState{ShouldLoad: true, Phase: PhaseIdle}
}

// Clone returns a deep copy safe to hand to observers.
func (s FeedState) Clone() FeedState {
	if s.Items != nil {
		items := make([]ReviewItem, len(s.Items))
		for i := range s.Items {
			items[i] = s.Items[i].clone()
		}
		s.Items = items
	}
	return s
}

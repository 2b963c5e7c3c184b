package backend

// Room is the canonical conversation record owned by the REST backend.
type Room struct {
	ID                int64  `json:"id"`
	FeedID            string `json:"feed_id"`
	Active            bool   `json:"is_active"`
	BreedingRequestID *int64 `json:"breeding_request_id,omitempty"`
	AdoptionRequestID *int64 `json:"adoption_request_id,omitempty"`
}

// Participant is one side of a room.
type Participant struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PetSummary is the pet a room is about.
type PetSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Breed    string `json:"breed,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// RequestSummary is the breeding or adoption request that opened the room.
type RequestSummary struct {
	ID     int64  `json:"id"`
	Kind   string `json:"kind"` // "breeding" or "adoption"
	Status string `json:"status"`
}

// RoomContext is the immutable context of a room.
type RoomContext struct {
	RoomID       int64          `json:"room_id"`
	Participants []Participant  `json:"participants"`
	Pet          PetSummary     `json:"pet"`
	Request      RequestSummary `json:"request"`
}

// Counterpart returns the participant other than userID.
func (c *RoomContext) Counterpart(userID int64) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Image is a file attached to an outgoing message.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

type uploadResponse struct {
	URL string `json:"url"`
}

type notificationRequest struct {
	FeedID  string `json:"chat_id"`
	Message string `json:"message"`
}

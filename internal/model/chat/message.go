package chat

import "time"

// Sender roles a message can carry. Messages are immutable once written;
// there is no edit or delete anywhere in the system.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is a single turn in a user's tutoring conversation. ID and
// CreatedAt are assigned by the store on append; any identifier a caller
// brings along is treated as provisional and replaced.
type Message struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

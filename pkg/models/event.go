package models

// Event is one scheduled class for a group.
// Date and Time are kept in their canonical text form ("2006-01-02", "15:04")
// so that matching against the clock is plain string equality.
type Event struct {
	ID        int64  `json:"id" db:"id"`
	Date      string `json:"date" db:"date"`
	Time      string `json:"time" db:"time"`
	Title     string `json:"title" db:"title"`
	Room      string `json:"room" db:"room"`
	GroupName string `json:"group_name" db:"group_name"`
}

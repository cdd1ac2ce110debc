package store

type Tag struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// CreateStatus says how a CreateTag call was satisfied. Every status is a
// successful outcome; callers only branch on it to pick a response.
type CreateStatus int

const (
	// StatusCreated means this call inserted the tag.
	StatusCreated CreateStatus = iota + 1
	// StatusExisted means the tag was already stored before this call.
	StatusExisted
	// StatusConflict means a concurrent insert won the race and the schema's
	// uniqueness constraint rejected ours.
	StatusConflict
)

func (s CreateStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusExisted:
		return "existed"
	case StatusConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

type CreateResult struct {
	Tag    Tag
	Status CreateStatus
}

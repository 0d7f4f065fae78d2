package models

// Track represents an uploaded audio entry in the catalog
type Track struct {
	ID              int
	ExternalName    string  // storage filename and public identifier
	DurationSeconds int     // whole seconds, always > 0 for ingested tracks
	ImageName       *string // cover image filename, nil when absent
	PlaylistID      *int    // owning playlist, nil when unattached
}

// Playlist represents a user-created playlist
type Playlist struct {
	ID         int
	Name       string
	CreatorID  int
	TrackCount int // number of tracks whose PlaylistID points here
}

// User represents a catalog account. Password holds whatever the configured
// password mode stores (verbatim or a bcrypt hash) and is never serialised.
type User struct {
	ID       int
	Username string
	Password string
}

// TrackRecord is the wire representation of a Track
type TrackRecord struct {
	ID              int     `json:"id"`
	ExternalName    string  `json:"externalName"`
	DurationSeconds int     `json:"durationSeconds"`
	ImageName       *string `json:"imageName,omitempty"`
	ImageURL        *string `json:"imageUrl,omitempty"`
	PlaylistID      *int    `json:"playlistId,omitempty"`
}

// PlaylistRecord is the wire representation of a Playlist
type PlaylistRecord struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	CreatorID  int    `json:"creatorId"`
	TrackCount int    `json:"trackCount"`
}

// UserRecord is the wire representation of an authenticated user
type UserRecord struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// MessageResponse is the body of every confirmation and error response
type MessageResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

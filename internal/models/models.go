package models

import "time"

// User represents an account (and its channel) on the platform. The password
// hash and refresh token never leave the server.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Fullname     string    `json:"fullname"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	Password     string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the owner projection embedded in video listings.
type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

// AccountUpdate lists the profile fields a user may change. Nil fields are
// left untouched.
type AccountUpdate struct {
	Username *string
	Email    *string
	Fullname *string
}

// ChannelProfile is the public view of a user's channel.
type ChannelProfile struct {
	ID                string `json:"_id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Fullname          string `json:"fullname"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// Video is an uploaded video owned by a channel.
type Video struct {
	ID          string       `json:"_id"`
	OwnerID     string       `json:"owner"`
	VideoFile   string       `json:"videoFile"`
	Thumbnail   string       `json:"thumbnail"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Duration    float64      `json:"duration"`
	Views       int64        `json:"views"`
	IsPublished bool         `json:"isPublished"`
	Owner       *UserSummary `json:"ownerDetails,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// OwnerOf reports the owning user id.
func (v Video) OwnerOf() string { return v.OwnerID }

// VideoUpdate lists the editable video details.
type VideoUpdate struct {
	Title       *string
	Description *string
}

// Comment is a remark left on a video.
type Comment struct {
	ID        string       `json:"_id"`
	VideoID   string       `json:"video"`
	OwnerID   string       `json:"owner"`
	Content   string       `json:"content"`
	Owner     *UserSummary `json:"ownerDetails,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// OwnerOf reports the owning user id.
func (c Comment) OwnerOf() string { return c.OwnerID }

// Tweet is a short text post on a channel.
type Tweet struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerOf reports the owning user id.
func (t Tweet) OwnerOf() string { return t.OwnerID }

// Playlist is an ordered list of videos curated by a user.
type Playlist struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Videos      []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnerOf reports the owning user id.
func (p Playlist) OwnerOf() string { return p.OwnerID }

// PlaylistUpdate lists the editable playlist details.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// LikeTarget names the kind of resource a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// LikeKey identifies a like relation: one row per user and target.
type LikeKey struct {
	LikedBy  string
	Target   LikeTarget
	TargetID string
}

// Like records that a user liked a video, comment or tweet.
type Like struct {
	ID        string     `json:"_id"`
	LikedBy   string     `json:"likedBy"`
	Target    LikeTarget `json:"target"`
	TargetID  string     `json:"targetId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SubscriptionKey identifies a subscriber/channel pair.
type SubscriptionKey struct {
	SubscriberID string
	ChannelID    string
}

// Subscription records that a user follows a channel.
type Subscription struct {
	ID           string    `json:"_id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ChannelStats aggregates a channel's reach.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/response"
	"github.com/vidtube/backend/internal/status"
)

// APIPrefix prefixes every API route.
const APIPrefix = "/api/v1"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Pipeline      *pipeline.Pipeline
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Playlists     PlaylistStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Dashboard     DashboardStore
	Media         MediaService

	// AuthLimiter guards register, login and refresh. Nil disables it.
	AuthLimiter pipeline.Limiter
	// Metrics is served on /metrics when set.
	Metrics http.Handler

	CookieSecure   bool
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	p := deps.Pipeline
	authn := p.Authenticate()
	limit := func(scope string) pipeline.Stage { return p.RateLimit(deps.AuthLimiter, scope) }

	health := HealthHandler{}
	users := UserHandler{
		Users:          deps.Users,
		Sessions:       deps.Sessions,
		Media:          deps.Media,
		CookieSecure:   deps.CookieSecure,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	videos := VideoHandler{Videos: deps.Videos, Users: deps.Users, Media: deps.Media, MaxUploadBytes: deps.MaxUploadBytes, NowFunc: deps.NowFunc}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos, Comments: deps.Comments, Tweets: deps.Tweets, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, NowFunc: deps.NowFunc}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, NowFunc: deps.NowFunc}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Dashboard: deps.Dashboard, Videos: deps.Videos, Users: deps.Users}

	route := func(pattern, name string, h pipeline.HandlerFunc, stages ...pipeline.Stage) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+APIPrefix+path, p.Handle(name, h, stages...))
	}

	route("GET /health-check", "health.check", health.Check)
	route("GET /health-check/check-code", "health.checkCode", health.CheckCode)

	route("POST /users/register", "users.register", users.Register, limit("register"))
	route("POST /users/login", "users.login", users.Login, limit("login"))
	route("POST /users/refresh-token", "users.refresh", users.RefreshToken, limit("refresh"))
	route("POST /users/logout", "users.logout", users.Logout, authn)
	route("POST /users/change-password", "users.changePassword", users.ChangePassword, authn)
	route("GET /users/current-user", "users.current", users.CurrentUser, authn)
	route("PATCH /users/update-account-details", "users.updateAccount", users.UpdateAccount, authn)
	route("PATCH /users/update-avatar", "users.updateAvatar", users.UpdateAvatar, authn)
	route("PATCH /users/update-cover-image", "users.updateCover", users.UpdateCoverImage, authn)
	route("GET /users/channel/{username}", "users.channel", users.Channel, authn)
	route("GET /users/watch-history", "users.watchHistory", users.WatchHistory, authn)

	route("GET /videos", "videos.list", videos.List)
	route("POST /videos/publish-video", "videos.publish", videos.Publish, authn)
	route("GET /videos/{videoId}", "videos.get", videos.Get, authn, pipeline.PathID("videoId"))
	route("PATCH /videos/{videoId}", "videos.update", videos.Update, authn, pipeline.PathID("videoId"))
	route("DELETE /videos/{videoId}", "videos.delete", videos.Delete, authn, pipeline.PathID("videoId"))
	route("PATCH /videos/update-thumbnail/{videoId}", "videos.updateThumbnail", videos.UpdateThumbnail, authn, pipeline.PathID("videoId"))
	route("PATCH /videos/toggle-publish-status", "videos.togglePublish", videos.TogglePublish, authn, pipeline.BodyID("videoId"))
	route("PATCH /videos/toggle-publish-status/{videoId}", "videos.togglePublish", videos.TogglePublish, authn, pipeline.PathOrBodyID("videoId"))

	route("GET /comments/{videoId}", "comments.list", comments.List, authn, pipeline.PathID("videoId"))
	route("POST /comments/{videoId}", "comments.add", comments.Add, authn, pipeline.PathID("videoId"))
	route("PATCH /comments/{commentId}", "comments.update", comments.Update, authn, pipeline.PathID("commentId"))
	route("DELETE /comments/{commentId}", "comments.delete", comments.Delete, authn, pipeline.PathID("commentId"))

	route("PATCH /likes/toggle-video-like/{videoId}", "likes.toggleVideo", likes.ToggleVideoLike, authn, pipeline.PathID("videoId"))
	route("PATCH /likes/toggle-comment-like/{commentId}", "likes.toggleComment", likes.ToggleCommentLike, authn, pipeline.PathID("commentId"))
	route("PATCH /likes/toggle-tweet-like/{tweetId}", "likes.toggleTweet", likes.ToggleTweetLike, authn, pipeline.PathID("tweetId"))
	route("GET /likes/get-liked-videos", "likes.likedVideos", likes.LikedVideos, authn)

	route("POST /tweets", "tweets.create", tweets.Create, authn)
	route("GET /tweets", "tweets.list", tweets.List, authn)
	route("PATCH /tweets/tweetId/{tweetId}", "tweets.update", tweets.Update, authn, pipeline.PathID("tweetId"))
	route("DELETE /tweets/tweetId/{tweetId}", "tweets.delete", tweets.Delete, authn, pipeline.PathID("tweetId"))

	route("GET /playlists", "playlists.list", playlists.List, authn)
	route("POST /playlists", "playlists.create", playlists.Create, authn)
	route("GET /playlists/playlist/{playlistId}", "playlists.get", playlists.Get, authn, pipeline.PathID("playlistId"))
	route("PATCH /playlists/playlist/{playlistId}", "playlists.update", playlists.Update, authn, pipeline.PathID("playlistId"))
	route("DELETE /playlists/playlist/{playlistId}", "playlists.delete", playlists.Delete, authn, pipeline.PathID("playlistId"))
	route("PATCH /playlists/playlist/{playlistId}/add-video", "playlists.addVideo", playlists.AddVideo, authn, pipeline.PathID("playlistId"), pipeline.BodyID("videoId"))
	route("PATCH /playlists/playlist/{playlistId}/remove-video", "playlists.removeVideo", playlists.RemoveVideo, authn, pipeline.PathID("playlistId"), pipeline.BodyID("videoId"))

	subscriptionIDs := []pipeline.Stage{authn, pipeline.BodyID("channelId"), pipeline.BodyID("subscriberId")}
	route("GET /subscriptions", "subscriptions.status", subscriptions.Status, subscriptionIDs...)
	route("POST /subscriptions", "subscriptions.subscribe", subscriptions.Subscribe, subscriptionIDs...)
	route("DELETE /subscriptions", "subscriptions.unsubscribe", subscriptions.Unsubscribe, subscriptionIDs...)

	route("GET /dashboard/get-channel-stats/{channelId}", "dashboard.stats", dashboard.ChannelStats, authn, pipeline.PathID("channelId"))
	route("GET /dashboard/get-channel-videos/{channelId}", "dashboard.videos", dashboard.ChannelVideos, authn, pipeline.PathID("channelId"))

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if allowed := allowedMethods(mux, r); len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			response.Error(r.Context(), w, apierror.New(status.MethodNotAllowed, "Method not allowed"))
			return
		}
		response.Error(r.Context(), w, apierror.NotFound("Route not found"))
	})
}

var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// allowedMethods lists the other methods registered for the request path.
func allowedMethods(mux *http.ServeMux, r *http.Request) []string {
	var allowed []string
	for _, method := range routeMethods {
		if method == r.Method {
			continue
		}
		candidate := r.Clone(r.Context())
		candidate.Method = method
		if _, pattern := mux.Handler(candidate); pattern != "" && pattern != "/" {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

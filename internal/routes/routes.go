package routes

import (
	"github.com/AnshRaj112/salvioris-chatsync/internal/handlers"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r chi.Router) {
	// Session
	r.Post("/api/auth/login", handlers.Login)
	r.Post("/api/auth/logout", handlers.Logout)
	r.Get("/api/auth/me", handlers.GetMe)
	r.Put("/api/auth/password", handlers.ChangePassword)

	// Profile and presence
	r.Put("/api/profile", handlers.UpdateProfile)
	r.Put("/api/profile/dms", handlers.SetAllowDMs)
	r.Post("/api/presence", handlers.Heartbeat)
	r.Get("/api/users/online", handlers.GetOnlineUsers)

	// Views, snapshots and typing
	r.Post("/api/session/view", handlers.ShowView)
	r.Post("/api/session/focus", handlers.SetFocus)
	r.Get("/api/badges", handlers.GetBadges)
	r.Get("/api/collections/{collection}", handlers.GetCollection)
	r.Post("/api/collections/{collection}/refresh", handlers.RefreshCollection)
	r.Post("/api/typing", handlers.StartTyping)
	r.Get("/api/typing", handlers.GetTyping)

	// Forum
	r.Post("/api/posts", handlers.CreatePost)
	r.Put("/api/posts/{postID}", handlers.EditPost)
	r.Delete("/api/posts/{postID}", handlers.DeletePost)
	r.Post("/api/posts/{postID}/vote", handlers.VotePost)
	r.Post("/api/posts/{postID}/pin", handlers.TogglePin)
	r.Post("/api/posts/{postID}/replies", handlers.CreateReply)
	r.Put("/api/posts/{postID}/replies/{date}", handlers.EditReply)
	r.Delete("/api/posts/{postID}/replies/{date}", handlers.DeleteReply)
	r.Post("/api/posts/{postID}/replies/{date}/vote", handlers.VoteReply)

	// Private conversations
	r.Post("/api/private/users/{username}/open", handlers.OpenPrivateChat)
	r.Post("/api/private/users/{username}/messages", handlers.SendPrivateMessage)
	r.Put("/api/private/chats/{key}/messages/{date}", handlers.EditPrivateMessage)
	r.Delete("/api/private/chats/{key}/messages/{date}", handlers.DeletePrivateMessage)

	// Groups
	r.Post("/api/groups", handlers.CreateGroup)
	r.Delete("/api/groups/{name}", handlers.DeleteGroup)
	r.Post("/api/groups/{name}/open", handlers.OpenGroup)
	r.Post("/api/groups/{name}/members", handlers.AddGroupMember)
	r.Post("/api/groups/{name}/messages", handlers.SendGroupMessage)
	r.Put("/api/groups/{name}/messages/{date}", handlers.EditGroupMessage)
	r.Delete("/api/groups/{name}/messages/{date}", handlers.DeleteGroupMessage)

	// Support
	r.Post("/api/support", handlers.SubmitSupportMessage)
	r.Get("/api/support", handlers.GetSupportMessages)
	r.Put("/api/support/{index}/answered", handlers.MarkSupportAnswered)

	// Moderation (moderators and admin)
	r.Get("/api/moderation/mutes", handlers.GetMutes)
	r.Post("/api/moderation/mutes", handlers.MuteUser)
	r.Delete("/api/moderation/mutes/{username}", handlers.UnmuteUser)
	r.Get("/api/moderation/log", handlers.GetModLog)
	r.Delete("/api/users/{username}", handlers.DeleteUser)

	// Admin
	r.Put("/api/admin/users/{username}/role", handlers.SetUserRole)
	r.Delete("/api/admin/modlog", handlers.ClearModLog)
	r.Post("/api/admin/clear-data", handlers.ClearAllData)
	r.Post("/api/admin/clear-messages", handlers.ClearAllMessages)
	r.Get("/api/admin/failed-attempts", handlers.GetFailedAttempts)
	r.Delete("/api/admin/failed-attempts", handlers.ClearFailedAttempts)

	// Change events for the rendering layer
	r.Get("/ws/events", handlers.EventsWebSocket)
}

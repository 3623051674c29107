package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Mentorships   *MentorshipHandler
	Profiles      *ProfileHandler
	Directory     *DirectoryHandler
	Queries       *QueryHandler
	Notifications *NotificationHandler
	Dashboard     *DashboardHandler
	Users         *UserHandler
	Exports       *ExportHandler
	Feedback      *FeedbackHandler
}

// Guards carries the authentication and audit middleware used by routes.
type Guards struct {
	Authenticate       gin.HandlerFunc
	AuthenticateStream gin.HandlerFunc
	Audit              func(action, resource string) gin.HandlerFunc
}

// RegisterRoutes mounts the API on the given group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	audit := g.Audit
	if audit == nil {
		audit = func(string, string) gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }
	}
	mentee := middleware.RequireRoles(models.RoleMentee)
	mentor := middleware.RequireRoles(models.RoleMentor)
	participant := middleware.RequireRoles(models.RoleMentee, models.RoleMentor)
	staff := middleware.RequireStaff()

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", g.Authenticate, h.Auth.Logout)
		auth.POST("/change-password", g.Authenticate, h.Auth.ChangePassword)
		auth.GET("/me", g.Authenticate, h.Auth.Me)
	}

	api.GET("/shared/queries/:token", h.Queries.ViewShared)
	api.GET("/exports/download/:token", h.Exports.Download)
	api.GET("/notifications/stream", g.AuthenticateStream, h.Notifications.Stream)

	secured := api.Group("")
	secured.Use(g.Authenticate)

	secured.GET("/notifications", h.Notifications.Feed)
	secured.POST("/feedback", h.Feedback.Submit)

	mentors := secured.Group("/mentors")
	{
		mentors.GET("", h.Directory.List)
		mentors.GET("/:id", h.Directory.Get)
	}

	requests := secured.Group("/requests")
	{
		requests.POST("", mentee, h.Mentorships.Submit)
		requests.GET("", participant, h.Mentorships.List)
		requests.POST("/:id/accept", mentor, h.Mentorships.Accept)
		requests.POST("/:id/reject", mentor, h.Mentorships.Reject)
	}

	mentorships := secured.Group("/mentorships")
	{
		mentorships.GET("", participant, h.Mentorships.Connections)
		mentorships.POST("/:id/end", middleware.RequireRoles(models.RoleMentee, models.RoleMentor, models.RoleAdmin), h.Mentorships.End)
	}

	profile := secured.Group("/profile")
	{
		profile.POST("/avatar", h.Profiles.UploadAvatar)
		profile.GET("/mentor", mentor, h.Profiles.GetMentor)
		profile.PUT("/mentor", mentor, audit(models.AuditActionProfileUpdate, "mentor_profile"), h.Profiles.UpdateMentor)
		profile.GET("/mentor/capacity", mentor, h.Profiles.Capacity)
		profile.PUT("/mentor/capacity", mentor, audit(models.AuditActionCapacityChange, "mentor_profile"), h.Profiles.SetMaxMentees)
		profile.PUT("/mentor/availability", mentor, audit(models.AuditActionCapacityChange, "mentor_profile"), h.Profiles.SetAvailability)
		profile.GET("/mentee", mentee, h.Profiles.GetMentee)
		profile.PUT("/mentee", mentee, audit(models.AuditActionProfileUpdate, "mentee_profile"), h.Profiles.UpdateMentee)
	}

	queries := secured.Group("/queries")
	{
		queries.POST("", mentee, h.Queries.Submit)
		queries.GET("", participant, h.Queries.List)
		queries.PUT("/:id/reply", mentor, audit(models.AuditActionQueryReply, "mentee_query"), h.Queries.Reply)
		queries.POST("/:id/share", mentee, h.Queries.RotateShare)
		queries.DELETE("/:id/share", mentee, audit(models.AuditActionShareRevoke, "mentee_query"), h.Queries.RevokeShare)
	}

	dashboard := secured.Group("/dashboard")
	{
		dashboard.GET("/me", participant, h.Dashboard.Mine)
		dashboard.GET("/overview", staff, h.Dashboard.Overview)
		dashboard.GET("/mentors", staff, h.Dashboard.Mentors)
		dashboard.GET("/mentees", staff, h.Dashboard.Mentees)
		dashboard.GET("/system", staff, h.Dashboard.System)
	}

	admin := middleware.RequireRoles(models.RoleAdmin)
	users := secured.Group("/users")
	{
		users.GET("", admin, h.Users.List)
		users.POST("", admin, h.Users.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfAccess), h.Users.Get)
		users.PUT("/:id/role", admin, h.Users.ChangeRole)
		users.DELETE("/:id", admin, h.Users.Delete)
	}

	exports := secured.Group("/exports", staff)
	{
		exports.POST("", audit(models.AuditActionExportRequest, "export_job"), h.Exports.Create)
		exports.GET("/:id", h.Exports.Status)
	}
}

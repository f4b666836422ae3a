package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nextround/backend/internal/api/handlers"
	"github.com/nextround/backend/internal/api/middleware"
)

// Deps bundles everything the router needs. The composition root fills it
// in; nothing here constructs its own dependencies.
type Deps struct {
	Auth       *handlers.AuthHandler
	Interview  *handlers.InterviewHandler
	Community  *handlers.CommunityHandler
	Profile    *handlers.ProfileHandler
	Transcribe *handlers.TranscribeHandler
}

func Register(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
		auth.GET("/check-username", d.Auth.CheckUsername)
		auth.POST("/forgot-password/send-otp", d.Auth.ForgotPasswordSendOTP)
		auth.POST("/forgot-password/verify-otp", d.Auth.ForgotPasswordVerifyOTP)
		auth.POST("/forgot-password/update", d.Auth.UpdatePassword)
	}

	api := r.Group("/api", middleware.JWTAuth())

	// Verification OTPs need a login but not a verified account.
	api.POST("/auth/send-otp", d.Auth.SendOTP)
	api.POST("/auth/verify-otp", d.Auth.VerifyOTP)

	verified := api.Group("", middleware.RequireVerified())

	interviews := verified.Group("/interviews")
	{
		interviews.POST("", d.Interview.Start)
		interviews.GET("", d.Interview.List)
		interviews.GET("/:session_id", d.Interview.Get)
		interviews.GET("/:session_id/questions", d.Interview.Questions)
		interviews.POST("/:session_id/questions", d.Interview.NextQuestion)
		interviews.POST("/:session_id/answers", d.Interview.SubmitAnswer)
		interviews.POST("/:session_id/stop", d.Interview.Stop)
		interviews.DELETE("/:session_id", d.Interview.Delete)
	}

	community := verified.Group("/community")
	{
		community.POST("/posts", d.Community.CreatePost)
		community.GET("/posts", d.Community.ListPosts)
		community.GET("/posts/:post_id", d.Community.GetPost)
		community.DELETE("/posts/:post_id", d.Community.DeletePost)
		community.POST("/posts/:post_id/like", d.Community.ToggleLike)
		community.POST("/posts/:post_id/answers", d.Community.PostAnswer)
		community.DELETE("/answers/:answer_id", d.Community.DeleteAnswer)
		community.GET("/answers/mine", d.Community.MyAnswers)
	}

	verified.GET("/profile", d.Profile.Summary)
	verified.POST("/transcribe", d.Transcribe.Transcribe)
}

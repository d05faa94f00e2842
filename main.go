package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/routes"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	auth := app.Party("/api/auth")
	{
		auth.Post("/register", routes.Register)
		auth.Post("/login", routes.Login)
		auth.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
	}

	users := app.Party("/api/users", accessTokenVerifierMiddleware)
	{
		users.Get("/me", routes.GetMe)
		users.Patch("/me", routes.UpdateMe)
		users.Put("/me/password", routes.ChangePassword)
		users.Get("/", utils.AdminOnlyMiddleware, routes.AdminListUsers)
		users.Get("/{id:uint}", utils.AdminOnlyMiddleware, routes.AdminGetUser)
		users.Patch("/{id:uint}", utils.AdminOnlyMiddleware, routes.AdminUpdateUser)
		users.Delete("/{id:uint}", utils.AdminOnlyMiddleware, routes.AdminDeleteUser)
	}

	messaging := app.Party("/api/messaging", accessTokenVerifierMiddleware)
	{
		messaging.Get("/conversations", routes.GetConversations)
		messaging.Post("/conversations/group", routes.CreateGroupConversation)
		messaging.Get("/conversations/{id:uint}", routes.GetConversationByID)
		messaging.Get("/conversations/{id:uint}/messages", routes.GetConversationMessages)
		messaging.Put("/conversations/{id:uint}/read-all", routes.MarkAllMessagesAsRead)
		messaging.Post("/conversations/{id:uint}/typing", routes.Typing)
		messaging.Get("/conversations/{id:uint}/typing", routes.ListTyping)
		messaging.Post("/messages", routes.SendMessage)
		messaging.Put("/messages/{id:uint}/read", routes.MarkMessageAsRead)
		messaging.Delete("/messages/{id:uint}", routes.DeleteMessage)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", routes.GetUserNotifications)
		notifications.Get("/all", utils.AdminOnlyMiddleware, routes.GetAllNotifications)
		notifications.Post("/", utils.AdminOnlyMiddleware, routes.CreateNotification)
		notifications.Put("/read-all", routes.MarkAllNotificationsAsRead)
		notifications.Get("/{id:uint}", routes.GetNotificationByID)
		notifications.Put("/{id:uint}/read", routes.MarkNotificationAsRead)
		notifications.Delete("/{id:uint}", routes.DeleteNotification)
	}

	announcements := app.Party("/api/announcements", accessTokenVerifierMiddleware)
	{
		announcements.Get("/", routes.GetAnnouncements)
		announcements.Get("/important", routes.GetImportantAnnouncements)
		announcements.Get("/{id:uint}", routes.GetAnnouncementByID)
		announcements.Post("/", utils.RolesMiddleware(models.RoleAdmin, models.RoleSiteManager), routes.CreateAnnouncement)
		announcements.Patch("/{id:uint}", utils.RolesMiddleware(models.RoleAdmin, models.RoleSiteManager), routes.UpdateAnnouncement)
		announcements.Delete("/{id:uint}", utils.RolesMiddleware(models.RoleAdmin, models.RoleSiteManager), routes.DeleteAnnouncement)
	}

	issues := app.Party("/api/issues", accessTokenVerifierMiddleware)
	{
		issues.Post("/", routes.CreateIssue)
		issues.Get("/", routes.GetIssues)
		issues.Get("/{id:uint}", routes.GetIssueByID)
		issues.Patch("/{id:uint}", utils.StaffOnlyMiddleware, routes.UpdateIssue)
		issues.Post("/{id:uint}/comments", routes.AddIssueComment)
		issues.Delete("/{id:uint}", utils.AdminOnlyMiddleware, routes.DeleteIssue)
	}

	payments := app.Party("/api/payments", accessTokenVerifierMiddleware)
	{
		payments.Get("/", routes.GetMyPayments)
		payments.Get("/all", utils.AdminOnlyMiddleware, routes.GetAllPayments)
		payments.Get("/totals", utils.AdminOnlyMiddleware, routes.GetPaymentTotals)
		payments.Post("/", utils.AdminOnlyMiddleware, routes.CreatePayment)
		payments.Get("/{id:uint}", routes.GetPaymentByID)
		payments.Post("/{id:uint}/pay", routes.PayPayment)
		payments.Patch("/{id:uint}", utils.AdminOnlyMiddleware, routes.UpdatePayment)
		payments.Delete("/{id:uint}", utils.AdminOnlyMiddleware, routes.DeletePayment)
	}

	surveys := app.Party("/api/surveys", accessTokenVerifierMiddleware)
	{
		surveys.Get("/", routes.GetSurveys)
		surveys.Post("/", utils.RolesMiddleware(models.RoleAdmin, models.RoleSiteManager), routes.CreateSurvey)
		surveys.Get("/{id:uint}", routes.GetSurveyByID)
		surveys.Get("/{id:uint}/results", routes.GetSurveyResults)
		surveys.Post("/{id:uint}/vote", routes.VoteSurvey)
		surveys.Post("/{id:uint}/close", utils.RolesMiddleware(models.RoleAdmin, models.RoleSiteManager), routes.CloseSurvey)
		surveys.Delete("/{id:uint}", utils.AdminOnlyMiddleware, routes.DeleteSurvey)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

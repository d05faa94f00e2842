package routes

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

func Register(ctx iris.Context) {
	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.SendError(ctx, iris.StatusBadRequest, "Email already registered")
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	prefs, _ := json.Marshal(models.DefaultNotificationPreferences())
	newUser = models.User{
		Name:            userInput.Name,
		Email:           strings.ToLower(userInput.Email),
		Password:        hashedPassword,
		Phone:           userInput.Phone,
		Role:            models.RoleResident,
		Site:            userInput.Site,
		Block:           userInput.Block,
		Apartment:       userInput.Apartment,
		OccupancyStatus: userInput.OccupancyStatus,
		Status:          models.UserStatusActive,
		Preferences:     datatypes.JSON(prefs),
	}

	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnUser(&newUser, ctx)
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.User
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.SendError(ctx, iris.StatusUnauthorized, errorMsg)
		return
	}

	if existingUser.Status != models.UserStatusActive {
		utils.SendError(ctx, iris.StatusUnauthorized, "Account is not active")
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.SendError(ctx, iris.StatusUnauthorized, errorMsg)
		return
	}

	now := time.Now()
	existingUser.LastLoginAt = &now
	storage.DB.Model(&existingUser).Update("last_login_at", now)

	returnUser(&existingUser, ctx)
}

// GetMe returns the caller's own profile.
func GetMe(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	user := getUserByID(claims.ID, ctx)
	if user == nil {
		return
	}
	utils.SendData(ctx, user)
}

// UpdateMe applies profile edits to the caller's own account. Role and
// status are admin-only and ignored here.
func UpdateMe(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	user := getUserByID(claims.ID, ctx)
	if user == nil {
		return
	}

	var input UpdateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if input.ProfileImage != "" {
		user.ProfileImage = input.ProfileImage
	}
	if input.Site != "" {
		user.Site = input.Site
	}
	if input.Block != "" {
		user.Block = input.Block
	}
	if input.Apartment != "" {
		user.Apartment = input.Apartment
	}
	if input.OccupancyStatus != "" {
		user.OccupancyStatus = input.OccupancyStatus
	}
	if input.Preferences != nil {
		prefs, err := json.Marshal(input.Preferences)
		if err == nil {
			user.Preferences = datatypes.JSON(prefs)
		}
	}

	if err := storage.DB.Save(user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, user)
}

// ChangePassword verifies the current password before storing a new hash.
func ChangePassword(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	user := getUserByID(claims.ID, ctx)
	if user == nil {
		return
	}

	var input ChangePasswordInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		utils.SendError(ctx, iris.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashed, hashErr := hashAndSaltPassword(input.NewPassword)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	user.Password = hashed
	if err := storage.DB.Save(user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendMessage(ctx, "Password updated", nil)
}

// AdminListUsers returns a page of accounts, soft-deleted ones included.
func AdminListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	limit := ctx.URLParamIntDefault("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := storage.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var users []models.User
	if err := storage.DB.Order("id ASC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendPage(ctx, users, page, limit, total)
}

func AdminGetUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid user id")
		return
	}

	user := getUserByID(id, ctx)
	if user == nil {
		return
	}
	utils.SendData(ctx, user)
}

// AdminUpdateUser changes role and/or account status.
func AdminUpdateUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid user id")
		return
	}

	user := getUserByID(id, ctx)
	if user == nil {
		return
	}

	var input AdminUpdateUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := user.Summary()
	if input.Role != "" {
		user.Role = input.Role
	}
	if input.Status != "" {
		user.Status = input.Status
	}

	if err := storage.DB.Save(user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "user.update", "user", user.ID, before, user.Summary())
	utils.SendData(ctx, user)
}

// AdminDeleteUser flags the account deleted; the record is never physically
// removed.
func AdminDeleteUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid user id")
		return
	}

	user := getUserByID(id, ctx)
	if user == nil {
		return
	}

	user.IsDeleted = true
	user.Status = models.UserStatusInactive
	if err := storage.DB.Save(user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "user.delete", "user", user.ID, nil, nil)
	utils.SendMessage(ctx, "User deleted", nil)
}

func getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := storage.DB.Where("email = ? AND is_deleted = ?", strings.ToLower(email), false).Limit(1).Find(&user)

	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}

	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func getUserByID(id uint, ctx iris.Context) *models.User {
	var user models.User
	userExists := storage.DB.Where("id = ? AND is_deleted = ?", id, false).Limit(1).Find(&user)

	if userExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}

	if userExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}

	return &user
}

func returnUser(user *models.User, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.SendData(ctx, iris.Map{
		"user":         user,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

type RegisterUserInput struct {
	Name            string `json:"name" validate:"required,max=256"`
	Email           string `json:"email" validate:"required,max=256,email"`
	Password        string `json:"password" validate:"required,min=6,max=256"`
	Phone           string `json:"phone" validate:"omitempty,max=32"`
	Site            string `json:"site" validate:"required,max=128"`
	Block           string `json:"block" validate:"required,max=32"`
	Apartment       string `json:"apartment" validate:"required,max=32"`
	OccupancyStatus string `json:"occupancyStatus" validate:"omitempty,oneof=owner tenant manager other"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name            string                          `json:"name"`
	Phone           string                          `json:"phone"`
	ProfileImage    string                          `json:"profileImage"`
	Site            string                          `json:"site"`
	Block           string                          `json:"block"`
	Apartment       string                          `json:"apartment"`
	OccupancyStatus string                          `json:"occupancyStatus" validate:"omitempty,oneof=owner tenant manager other"`
	Preferences     *models.NotificationPreferences `json:"preferences"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=256"`
}

type AdminUpdateUserInput struct {
	Role   string `json:"role" validate:"omitempty,oneof=resident admin siteManager technicalSupport security"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

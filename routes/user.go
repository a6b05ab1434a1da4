package routes

import (
	"os"
	"strings"

	"atchaboyholla-server/models"
	"atchaboyholla-server/storage"
	"atchaboyholla-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
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
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		Email:       strings.ToLower(userInput.Email),
		Password:    hashedPassword,
		DisplayName: strings.TrimSpace(userInput.DisplayName),
	}

	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Seed the profile row up front so display_name is never null for any
	// later avatar or review write.
	if err := ensureProfile(&newUser); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// When confirmation is on, the account is not a live session yet; the
	// caller stays anonymous until the login that follows confirmation.
	if os.Getenv("REQUIRE_EMAIL_CONFIRMATION") == "true" {
		ctx.JSON(iris.Map{
			"confirmationRequired": true,
			"message":              "Signed up. Confirm your email, then log in.",
		})
		return
	}

	returnUser(newUser, "", ctx)
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
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if err := ensureProfile(&existingUser); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnUser(existingUser, ctx.URLParamDefault("redirect", userInput.Redirect), ctx)
}

// Logout revokes the presented refresh token; the access token simply ages
// out. Verified by the refresh-token middleware before it reaches here.
func Logout(ctx iris.Context) {
	token := jwt.GetVerifiedToken(ctx)
	utils.RevokeRefreshToken(string(token.Token))

	ctx.JSON(iris.Map{"loggedOut": true})
}

// GetSession reports the current session state plus the header display data
// (name, avatar). Anonymous requests get {"authenticated": false}, never an
// error.
func GetSession(ctx iris.Context) {
	userID, ok := utils.CurrentUserID(ctx)
	if !ok {
		ctx.JSON(iris.Map{"authenticated": false})
		return
	}

	profile := getProfile(userID)
	displayName := "Member"
	if profile != nil && profile.DisplayName != "" {
		displayName = profile.DisplayName
	}

	ctx.JSON(iris.Map{
		"authenticated": true,
		"user": iris.Map{
			"id":          userID,
			"displayName": displayName,
			"avatarURL":   avatarURL(profile),
		},
	})
}

func getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(&user)

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
	if storage.DB == nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}

	var user models.User
	userExists := storage.DB.Where("id = ?", id).Find(&user)

	if userExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}

	if userExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "User not found", ctx)
		return nil
	}

	return &user
}

func returnUser(user models.User, redirect string, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	profile := getProfile(user.ID)
	displayName := user.DisplayName
	if profile != nil && profile.DisplayName != "" {
		displayName = profile.DisplayName
	}

	payload := iris.Map{
		"ID":           user.ID,
		"email":        user.Email,
		"displayName":  displayName,
		"avatarURL":    avatarURL(profile),
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	}
	if redirect != "" {
		payload["redirectTo"] = redirect
	}

	ctx.JSON(payload)
}

type RegisterUserInput struct {
	DisplayName string `json:"displayName" validate:"required,max=256"`
	Email       string `json:"email" validate:"required,max=256,email"`
	Password    string `json:"password" validate:"required,min=8,max=256"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Redirect string `json:"redirect"`
}

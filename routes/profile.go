package routes

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"

	"atchaboyholla-server/models"
	"atchaboyholla-server/storage"
	"atchaboyholla-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/gorm/clause"
)

// DefaultAvatarURL is served for every profile without an uploaded avatar.
const DefaultAvatarURL = "/assets/default-avatar.png"

var allowedAvatarExts = []string{"png", "jpg", "jpeg", "webp"}

// getProfile returns the profile row for an identity, or nil when no row
// exists or the lookup fails. Errors are logged, not surfaced.
func getProfile(userID uint) *models.Profile {
	if storage.DB == nil || userID == 0 {
		return nil
	}

	var profile models.Profile
	query := storage.DB.Where("id = ?", userID).Limit(1).Find(&profile)
	if query.Error != nil {
		log.Printf("ERROR: profile lookup failed for user %d: %v", userID, query.Error)
		return nil
	}
	if query.RowsAffected == 0 {
		return nil
	}

	return &profile
}

func deriveDisplayName(user *models.User) string {
	if user == nil {
		return "Member"
	}
	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return name
	}
	if user.Email != "" {
		return strings.SplitN(user.Email, "@", 2)[0]
	}
	return "Member"
}

// ensureProfile upserts the profile row for a user so display_name is never
// null. Idempotent: an existing non-empty name is kept as is.
func ensureProfile(user *models.User) error {
	if storage.DB == nil {
		return errors.New("database not initialized")
	}

	existing := getProfile(user.ID)

	desired := ""
	if existing != nil {
		desired = strings.TrimSpace(existing.DisplayName)
	}
	if desired == "" {
		desired = deriveDisplayName(user)
	}

	row := models.Profile{ID: user.ID, DisplayName: desired}
	return storage.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name"}),
	}).Create(&row).Error
}

// setAvatarPath upserts only the avatar field, keeping the display_name
// invariant by ensuring the row first.
func setAvatarPath(user *models.User, path string) error {
	if err := ensureProfile(user); err != nil {
		return err
	}

	row := models.Profile{ID: user.ID, DisplayName: deriveDisplayName(user), AvatarPath: path}
	return storage.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"avatar_path"}),
	}).Create(&row).Error
}

// avatarURL maps a profile to a displayable image URL. Absent profiles,
// empty paths and unconfigured storage all fall back to the default asset.
func avatarURL(profile *models.Profile) string {
	if profile == nil || profile.AvatarPath == "" {
		return DefaultAvatarURL
	}

	url := storage.PublicObjectURL(storage.AvatarBucket(), profile.AvatarPath)
	if url == "" {
		return DefaultAvatarURL
	}
	return url
}

// GetPublicProfile returns the public display data for any identity.
func GetPublicProfile(ctx iris.Context) {
	id := ctx.Params().GetUintDefault("id", 0)
	if id == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid user ID.", ctx)
		return
	}

	profile := getProfile(id)
	displayName := "Member"
	if profile != nil && profile.DisplayName != "" {
		displayName = profile.DisplayName
	}

	ctx.JSON(iris.Map{
		"id":          id,
		"displayName": displayName,
		"avatarDef":   profile == nil || profile.AvatarPath == "",
		"avatarURL":   avatarURL(profile),
	})
}

// UploadAvatar stores the uploaded image under <userID>.<ext> in the avatar
// bucket (overwriting any previous one) and records the path on the profile.
func UploadAvatar(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	user := getUserByID(userID, ctx)
	if user == nil {
		return
	}

	file, header, err := ctx.FormFile("avatar")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Choose an image first.", ctx)
		return
	}
	defer file.Close()

	data, readErr := io.ReadAll(file)
	if readErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ext := avatarExt(header)
	path := fmt.Sprintf("%d.%s", user.ID, ext)

	if err := storage.UploadObject(storage.AvatarBucket(), path, data, avatarContentType(header, ext)); err != nil {
		utils.CreateError(iris.StatusBadGateway, "Upload Error", "Avatar upload failed.", ctx)
		return
	}

	if err := setAvatarPath(user, path); err != nil {
		log.Printf("ERROR: avatar path update failed for user %d: %v", user.ID, err)
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"avatarPath": path,
		"avatarURL":  storage.PublicObjectURL(storage.AvatarBucket(), path),
	})
}

func avatarExt(header *multipart.FileHeader) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !slices.Contains(allowedAvatarExts, ext) {
		return "png"
	}
	return ext
}

func avatarContentType(header *multipart.FileHeader, ext string) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "image/" + ext
}

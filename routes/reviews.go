package routes

import (
	"log"
	"strings"
	"time"

	"atchaboyholla-server/models"
	"atchaboyholla-server/services"
	"atchaboyholla-server/storage"
	"atchaboyholla-server/utils"

	"github.com/kataras/iris/v12"
)

const (
	reviewFetchLimit     = 100
	userReviewFetchLimit = 50
	listRenderLimit      = 30
	topRenderLimit       = 5
)

// fetchReviews loads the newest reviews, optionally narrowed to one type in
// SQL. Query errors degrade to an empty set: the listing renders, the error
// goes to the log.
func fetchReviews(typeFilter string) []models.Review {
	if storage.DB == nil {
		return []models.Review{}
	}

	query := storage.DB.Order("created_at DESC").Limit(reviewFetchLimit)
	if typeFilter != "" {
		query = query.Where("type = ?", typeFilter)
	}

	var reviews []models.Review
	if err := query.Find(&reviews).Error; err != nil {
		log.Printf("ERROR: review fetch failed: %v", err)
		return []models.Review{}
	}

	return reviews
}

func fetchReviewsForUser(userID uint) []models.Review {
	if storage.DB == nil {
		return []models.Review{}
	}

	var reviews []models.Review
	err := storage.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(userReviewFetchLimit).
		Find(&reviews).Error
	if err != nil {
		log.Printf("ERROR: user review fetch failed for %d: %v", userID, err)
		return []models.Review{}
	}

	return reviews
}

// profilesByID batch-fetches the profile rows joined to a review set at
// render time. One query per listing, never one per row.
func profilesByID(userIDs []uint) map[uint]models.Profile {
	result := make(map[uint]models.Profile)
	if storage.DB == nil {
		return result
	}

	seen := make(map[uint]bool)
	ids := make([]uint, 0, len(userIDs))
	for _, id := range userIDs {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return result
	}

	var profiles []models.Profile
	if err := storage.DB.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		log.Printf("ERROR: profile batch fetch failed: %v", err)
		return result
	}

	for _, p := range profiles {
		result[p.ID] = p
	}
	return result
}

func listingQueryFromRequest(ctx iris.Context) services.ListingQuery {
	return services.ListingQuery{
		Search:    ctx.URLParamDefault("q", ""),
		MinRating: ctx.URLParamFloat64Default("min", 0),
		Sort:      ctx.URLParamDefault("sort", services.SortNewest),
	}
}

type reviewView struct {
	ID          uint    `json:"id"`
	UserID      uint    `json:"userID"`
	Title       string  `json:"title"`
	Type        string  `json:"type"`
	Rating      float64 `json:"rating"`
	Stars       string  `json:"stars"`
	Body        string  `json:"review"`
	CreatedAt   string  `json:"createdAt"`
	DisplayName string  `json:"displayName"`
	AvatarURL   string  `json:"avatarURL"`
}

func decorateReviews(items []models.Review, profiles map[uint]models.Profile) []reviewView {
	views := make([]reviewView, 0, len(items))
	for _, r := range items {
		name := "Member"
		avatar := DefaultAvatarURL
		if p, ok := profiles[r.UserID]; ok {
			if p.DisplayName != "" {
				name = p.DisplayName
			}
			avatar = avatarURL(&p)
		}
		views = append(views, reviewView{
			ID:          r.ID,
			UserID:      r.UserID,
			Title:       r.Title,
			Type:        r.Type,
			Rating:      r.Rating,
			Stars:       services.ToStars(r.Rating),
			Body:        r.Body,
			CreatedAt:   r.CreatedAt.Format(time.RFC3339),
			DisplayName: name,
			AvatarURL:   avatar,
		})
	}
	return views
}

// ListReviews runs the full listing pipeline: fetch, filter, sort,
// aggregate, join profiles, respond.
func ListReviews(ctx iris.Context) {
	all := fetchReviews(ctx.URLParamDefault("type", ""))
	filtered := services.ApplyListingQuery(all, listingQueryFromRequest(ctx))

	userIDs := make([]uint, 0, len(filtered))
	for _, r := range filtered {
		userIDs = append(userIDs, r.UserID)
	}
	profiles := profilesByID(userIDs)

	listed := filtered
	if len(listed) > listRenderLimit {
		listed = listed[:listRenderLimit]
	}

	ctx.JSON(iris.Map{
		"stats":   services.Summarize(filtered),
		"count":   len(filtered),
		"top":     decorateReviews(services.TopRated(filtered, topRenderLimit), profiles),
		"reviews": decorateReviews(listed, profiles),
	})
}

// ListUserReviews returns one identity's reviews for the public profile
// page, newest first.
func ListUserReviews(ctx iris.Context) {
	id := ctx.Params().GetUintDefault("id", 0)
	if id == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid user ID.", ctx)
		return
	}

	reviews := fetchReviewsForUser(id)
	profiles := profilesByID([]uint{id})

	ctx.JSON(iris.Map{
		"count":   len(reviews),
		"reviews": decorateReviews(reviews, profiles),
	})
}

// CreateReview validates and inserts a review. Anonymous callers and invalid
// payloads are rejected before any database work.
func CreateReview(ctx iris.Context) {
	userID, loggedIn := utils.CurrentUserID(ctx)
	if !loggedIn {
		utils.CreateError(iris.StatusUnauthorized, "Login Required", "Please login to post a review.", ctx)
		return
	}

	var input CreateReviewInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !models.ValidRatingStep(input.Rating) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Please select a rating (0.5 to 5.0).", ctx)
		return
	}

	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	reviewType := strings.TrimSpace(input.Type)
	if title == "" || body == "" || reviewType == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Please enter a title and review.", ctx)
		return
	}

	user := getUserByID(userID, ctx)
	if user == nil {
		return
	}

	if err := ensureProfile(user); err != nil {
		log.Printf("ERROR: ensure profile failed for user %d: %v", userID, err)
		utils.CreateInternalServerError(ctx)
		return
	}

	review := models.Review{
		UserID: userID,
		Title:  title,
		Type:   reviewType,
		Rating: input.Rating,
		Body:   body,
	}

	if err := storage.DB.Create(&review).Error; err != nil {
		log.Printf("ERROR: review insert failed for user %d: %v", userID, err)
		utils.CreateError(iris.StatusInternalServerError, "Post Error", "Failed to post review.", ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "data": review})
}

type CreateReviewInput struct {
	Title  string  `json:"title" validate:"required,max=200"`
	Type   string  `json:"type" validate:"required,max=50"`
	Rating float64 `json:"rating" validate:"required"`
	Body   string  `json:"review" validate:"required,max=2000"`
}

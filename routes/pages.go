package routes

import (
	"embed"
	"html/template"
	"log"
	"time"

	"atchaboyholla-server/models"
	"atchaboyholla-server/services"

	"github.com/kataras/iris/v12"
)

//go:embed views/*.html
var viewFiles embed.FS

// All user content (titles, bodies, display names) flows through
// html/template, so escaping is guaranteed by the renderer itself.
var pageTemplates = template.Must(template.ParseFS(viewFiles, "views/*.html"))

type reviewCard struct {
	UserID      uint
	Title       string
	Type        string
	Body        string
	DisplayName string
	AvatarURL   string
	Stars       string
	Rating      float64
	Date        string
}

type reviewsPageData struct {
	Stats   services.ListingStats
	Count   int
	Top     []reviewCard
	Reviews []reviewCard
}

type userPageData struct {
	Found       bool
	UserID      uint
	DisplayName string
	AvatarURL   string
	Reviews     []reviewCard
	Count       int
}

func formatDate(ts time.Time) string {
	return ts.Format("Jan 2, 2006")
}

func toCards(items []models.Review, profiles map[uint]models.Profile) []reviewCard {
	cards := make([]reviewCard, 0, len(items))
	for _, r := range items {
		name := "Member"
		avatar := DefaultAvatarURL
		if p, ok := profiles[r.UserID]; ok {
			if p.DisplayName != "" {
				name = p.DisplayName
			}
			avatar = avatarURL(&p)
		}
		cards = append(cards, reviewCard{
			UserID:      r.UserID,
			Title:       r.Title,
			Type:        r.Type,
			Body:        r.Body,
			DisplayName: name,
			AvatarURL:   avatar,
			Stars:       services.ToStars(r.Rating),
			Rating:      r.Rating,
			Date:        formatDate(r.CreatedAt),
		})
	}
	return cards
}

func renderPage(ctx iris.Context, name string, data interface{}) {
	ctx.ContentType("text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(ctx, name, data); err != nil {
		log.Printf("ERROR: rendering %s failed: %v", name, err)
	}
}

// ReviewsPage renders the stats panel, the top-5 list and the full list
// (first 30 cards) for the current filters.
func ReviewsPage(ctx iris.Context) {
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

	renderPage(ctx, "reviews.html", reviewsPageData{
		Stats:   services.Summarize(filtered),
		Count:   len(filtered),
		Top:     toCards(services.TopRated(filtered, topRenderLimit), profiles),
		Reviews: toCards(listed, profiles),
	})
}

// UserPage renders the public profile selected by the id query parameter:
// display name, avatar and that identity's reviews, newest first.
func UserPage(ctx iris.Context) {
	id, err := ctx.URLParamInt("id")
	if err != nil || id <= 0 {
		renderPage(ctx, "user.html", userPageData{Found: false})
		return
	}

	userID := uint(id)
	profile := getProfile(userID)
	displayName := "Member"
	if profile != nil && profile.DisplayName != "" {
		displayName = profile.DisplayName
	}

	reviews := fetchReviewsForUser(userID)
	profiles := map[uint]models.Profile{}
	if profile != nil {
		profiles[userID] = *profile
	}

	renderPage(ctx, "user.html", userPageData{
		Found:       true,
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL(profile),
		Reviews:     toCards(reviews, profiles),
		Count:       len(reviews),
	})
}

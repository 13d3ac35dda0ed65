package core

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(authService AuthService, codec *TokenCodec, categories CategoryRepository, items ItemRepository) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request body")
				return
			}

			token, identity, err := authService.Register(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				respondAuthError(c, err, "Failed to register user")
				return
			}
			c.JSON(http.StatusOK, sessionResponse(token, identity))
		})

		auth.POST("/login", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request body")
				return
			}

			token, identity, err := authService.Login(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				respondAuthError(c, err, "Failed to log in")
				return
			}
			c.JSON(http.StatusOK, sessionResponse(token, identity))
		})

		auth.POST("/guest", func(c *gin.Context) {
			token, identity, err := authService.GuestSession()
			if err != nil {
				respondAuthError(c, err, "Failed to start guest session")
				return
			}
			c.JSON(http.StatusOK, sessionResponse(token, identity))
		})
	}

	protected := r.Group("", Authenticate(codec))
	{
		protected.GET("/categories", func(c *gin.Context) {
			view := c.DefaultQuery("view", ViewVisible)
			filter := OwnerFilterFor(CurrentIdentity(c))

			list, err := categories.List(c.Request.Context(), filter, view)
			if err != nil {
				log.Printf("error fetching categories: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to fetch categories")
				return
			}
			c.JSON(http.StatusOK, list)
		})

		protected.POST("/categories", func(c *gin.Context) {
			var req struct {
				Name string `json:"name"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request body")
				return
			}
			name := strings.TrimSpace(req.Name)
			if name == "" {
				respondError(c, http.StatusBadRequest, "Category name is required")
				return
			}

			filter := OwnerFilterFor(CurrentIdentity(c))
			category, err := categories.Create(c.Request.Context(), name, filter)
			if err != nil {
				log.Printf("error creating category: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to create category")
				return
			}
			c.JSON(http.StatusOK, category)
		})

		protected.PATCH("/categories/:id", func(c *gin.Context) {
			var req struct {
				Name   *string `json:"name"`
				Hidden *bool   `json:"hidden"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request body")
				return
			}

			filter := OwnerFilterFor(CurrentIdentity(c))
			category, err := categories.Update(c.Request.Context(), c.Param("id"), filter, CategoryUpdateInput{
				Name:   req.Name,
				Hidden: req.Hidden,
			})
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "Category not found")
					return
				}
				log.Printf("error updating category: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to update category")
				return
			}
			c.JSON(http.StatusOK, category)
		})

		protected.DELETE("/categories/:id", func(c *gin.Context) {
			id := c.Param("id")
			filter := OwnerFilterFor(CurrentIdentity(c))
			ctx := c.Request.Context()

			if err := categories.Delete(ctx, id, filter); err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "Category not found")
					return
				}
				log.Printf("error deleting category: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to delete category")
				return
			}
			if err := items.DeleteByCategory(ctx, id); err != nil {
				log.Printf("error deleting category items: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to delete category")
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		protected.GET("/items/:categoryId", func(c *gin.Context) {
			filter := OwnerFilterFor(CurrentIdentity(c))
			ctx := c.Request.Context()

			category, err := categories.Find(ctx, c.Param("categoryId"), filter)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "Category not found")
					return
				}
				log.Printf("error fetching category: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to fetch items")
				return
			}

			list, err := items.ListByCategory(ctx, category.ID)
			if err != nil {
				log.Printf("error fetching items: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to fetch items")
				return
			}
			c.JSON(http.StatusOK, gin.H{"category": category, "items": list})
		})

		protected.POST("/items/:categoryId", func(c *gin.Context) {
			var req struct {
				Name string `json:"name"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request body")
				return
			}
			name := strings.TrimSpace(req.Name)
			if name == "" {
				respondError(c, http.StatusBadRequest, "Item name is required")
				return
			}

			filter := OwnerFilterFor(CurrentIdentity(c))
			ctx := c.Request.Context()

			category, err := categories.Find(ctx, c.Param("categoryId"), filter)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "Category not found")
					return
				}
				log.Printf("error fetching category: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to create item")
				return
			}

			item, err := items.Create(ctx, category.ID, name, filter)
			if err != nil {
				log.Printf("error creating item: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to create item")
				return
			}
			c.JSON(http.StatusOK, item)
		})

		protected.PATCH("/items/:id", func(c *gin.Context) {
			var req struct {
				Name     *string `json:"name"`
				Hidden   *bool   `json:"hidden"`
				Need     *bool   `json:"need"`
				Notes    *string `json:"notes"`
				Location *string `json:"location"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request body")
				return
			}

			ctx := c.Request.Context()
			item, ok := findOwnedItem(c, items, categories)
			if !ok {
				return
			}

			updated, err := items.Update(ctx, item.ID, ItemUpdateInput{
				Name:     req.Name,
				Hidden:   req.Hidden,
				Need:     req.Need,
				Notes:    req.Notes,
				Location: req.Location,
			})
			if err != nil {
				log.Printf("error updating item: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to update item")
				return
			}
			c.JSON(http.StatusOK, updated)
		})

		protected.DELETE("/items/:id", func(c *gin.Context) {
			item, ok := findOwnedItem(c, items, categories)
			if !ok {
				return
			}

			if err := items.Delete(c.Request.Context(), item.ID); err != nil {
				log.Printf("error deleting item: %v", err)
				respondError(c, http.StatusInternalServerError, "Failed to delete item")
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
	}

	return r
}

// findOwnedItem loads the item at :id and verifies the caller owns its
// category. Items outside the caller's scope look exactly like missing ones.
func findOwnedItem(c *gin.Context, items ItemRepository, categories CategoryRepository) (*Item, bool) {
	ctx := c.Request.Context()

	item, err := items.Find(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(c, http.StatusNotFound, "Item not found")
			return nil, false
		}
		log.Printf("error fetching item: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to fetch item")
		return nil, false
	}

	filter := OwnerFilterFor(CurrentIdentity(c))
	if _, err := categories.Find(ctx, item.CategoryID, filter); err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(c, http.StatusNotFound, "Item not found")
			return nil, false
		}
		log.Printf("error checking item ownership: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to fetch item")
		return nil, false
	}
	return item, true
}

// respondAuthError maps auth service failures onto the error taxonomy the
// client sees; anything unclassified logs and reports fallback as a 500.
func respondAuthError(c *gin.Context, err error, fallback string) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, ve.Message)
	case errors.Is(err, ErrDuplicateUsername):
		respondError(c, http.StatusConflict, "Username already exists")
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
	default:
		log.Printf("auth error: %v", err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func sessionResponse(token string, identity Identity) gin.H {
	return gin.H{
		"token": token,
		"user": gin.H{
			"username": identity.Username,
			"role":     identity.Role,
		},
	}
}

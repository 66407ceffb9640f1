package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"inventory/models"
	"inventory/pkg/policy"
)

// userView is a user as returned by the user endpoints.
type userView struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Type      uint   `json:"type"`
	TypeLabel string `json:"type_label"`
}

func viewOf(u models.User) userView {
	return userView{ID: u.ID, Email: u.Email, Type: u.UserTypeID, TypeLabel: policy.Role(u.UserTypeID).Label()}
}

type userRequest struct {
	Email string `json:"email" binding:"required,email"`
	Type  *int   `json:"type" binding:"required"`
}

// bindUser decodes a user body and validates its type.
func bindUser(c *gin.Context) (userRequest, policy.Role, bool) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body"})
			return req, 0, false
		}
		fields := gin.H{}
		for _, fe := range verrs {
			msg := "This field is required."
			if fe.Tag() == "email" {
				msg = "Enter a valid email address."
			}
			fields[strings.ToLower(fe.Field())] = []string{msg}
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid data", "errors": fields})
		return req, 0, false
	}
	req.Email = strings.TrimSpace(req.Email)
	role, err := policy.ParseUserType(*req.Type)
	if err != nil {
		respondError(c, err)
		return req, 0, false
	}
	return req, role, true
}

// emailTaken reports whether another user than id already uses email.
func emailTaken(c *gin.Context, email string, id uint) (bool, error) {
	other, err := firstUserByEmail(c.Request.Context(), email)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return other.ID != id, nil
}

func respondEmailTaken(c *gin.Context) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": "Invalid data",
		"errors":  gin.H{"email": []string{"user with this email already exists."}},
	})
}

func listUsersHandler(c *gin.Context) {
	search, ok := parseSearch(c, defaultUserRows)
	if !ok {
		return
	}
	rows, total, err := st.Users.Search(c.Request.Context(), search)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]userView, 0, len(rows))
	for _, u := range rows {
		out = append(out, viewOf(u))
	}
	respondList(c, out, total)
}

func createUserHandler(c *gin.Context) {
	if !policy.CanManageUsers(actorRole(c)) {
		respondError(c, policy.ErrUnauthorized)
		return
	}
	req, role, ok := bindUser(c)
	if !ok {
		return
	}
	taken, err := emailTaken(c, req.Email, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	if taken {
		respondEmailTaken(c)
		return
	}
	user := &models.User{Email: req.Email, UserTypeID: uint(role)}
	if err := st.Users.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}
	logFor(c).WithField("target", user.ID).WithField("type", role.String()).Info("user created")
	c.JSON(http.StatusCreated, gin.H{"data": user.ID})
}

func getUserHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := st.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": viewOf(*user)})
}

func updateUserHandler(c *gin.Context) {
	if !policy.CanManageUsers(actorRole(c)) {
		respondError(c, policy.ErrUnauthorized)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, role, ok := bindUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user, err := st.Users.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	taken, err := emailTaken(c, req.Email, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if taken {
		respondEmailTaken(c)
		return
	}
	user.Email = req.Email
	user.UserTypeID = uint(role)
	if err := st.Users.Update(ctx, user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successful"})
}

func deleteUserHandler(c *gin.Context) {
	actor := actorRole(c)
	if !policy.CanManageUsers(actor) {
		respondError(c, policy.ErrUnauthorized)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	target, err := st.Users.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !policy.CanDeleteUser(actor, policy.Role(target.UserTypeID)) {
		respondError(c, policy.ErrUnauthorized)
		return
	}
	if err := st.Users.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	logFor(c).WithField("target", id).Info("user deleted")
	c.Status(http.StatusNoContent)
}

package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"inkwell/constants"
	"inkwell/database"
)

var errInvalidBody = errors.New("invalid request body")

// FlexID accepts an id sent either as a JSON number or a numeric string.
type FlexID uint

func (id *FlexID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", data)
	}
	*id = FlexID(n)
	return nil
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type PostRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Content     string   `json:"content" validate:"required"`
	Format      string   `json:"format" validate:"omitempty,oneof=html markdown"`
	CategoryID  FlexID   `json:"categoryId" validate:"required"`
	TagIDs      []FlexID `json:"tagIds"`
	Key         string   `json:"key" validate:"max=255"`
	Published   *bool    `json:"published"`
	Description string   `json:"description" validate:"max=500"`
	Image       string   `json:"image" validate:"omitempty,url"`
}

func (req PostRequest) toInput(authorID uint) database.PostInput {
	tagIDs := make([]uint, 0, len(req.TagIDs))
	for _, id := range req.TagIDs {
		tagIDs = append(tagIDs, uint(id))
	}
	return database.PostInput{
		Title:       req.Title,
		Content:     req.Content,
		Format:      req.Format,
		CategoryID:  uint(req.CategoryID),
		TagIDs:      tagIDs,
		Key:         req.Key,
		Published:   req.Published,
		Description: req.Description,
		Image:       req.Image,
		AuthorID:    authorID,
	}
}

// decodeRequest reads a JSON body into dst and validates it. Validation
// failures come back as validator.ValidationErrors.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MAX_POST_LENGTH)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return s.validate.Struct(dst)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "max":
			parts = append(parts, fe.Field()+" must be at most "+fe.Param()+" characters")
		case "oneof":
			parts = append(parts, fe.Field()+" must be one of: "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func respondDecodeError(w http.ResponseWriter, err error, summary string) {
	if errors.Is(err, errInvalidBody) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: summary, Message: validationMessage(err)})
}

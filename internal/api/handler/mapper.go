package handler

import (
	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}
}

func toProfileInput(req updateMeRequest) ports.UpdateProfileInput {
	return ports.UpdateProfileInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}
}

func toBookInput(req createBookRequest) ports.BookInput {
	return ports.BookInput{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Description:   req.Description,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		PageCount:     req.PageCount,
		CoverURL:      req.CoverURL,
		Language:      req.Language,
		AuthorIDs:     req.AuthorIDs,
	}
}

func toBookPatch(req updateBookRequest) domain.BookPatch {
	return domain.BookPatch{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Description:   req.Description,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		PageCount:     req.PageCount,
		CoverURL:      req.CoverURL,
		Language:      req.Language,
	}
}

func toAuthorPatch(req updateAuthorRequest) domain.AuthorPatch {
	return domain.AuthorPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	}
}

// --- Service output → Response ---

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		User:        res.User,
	}
}

func toJobResponse(h domain.JobHandle) jobResponse {
	return jobResponse{JobID: h.ID, Type: string(h.Type)}
}

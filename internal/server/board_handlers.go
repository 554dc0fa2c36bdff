package server

import (
	"bulletin/internal/service"

	"github.com/gofiber/fiber/v2"
)

func writeOutcome(c *fiber.Ctx, out service.Outcome) error {
	return c.Status(out.StatusCode).JSON(out)
}

// ListBoards handles POST /api/list
// @Summary List posts
// @Description One page of post summaries, newest first, optionally filtered by a search term
// @Tags board
// @Accept json
// @Produce json
// @Param request body ListBoardsRequest true "Paging and search"
// @Success 200 {object} ListBoardsResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /list [post]
func (s *Server) ListBoards(c *fiber.Ctx) error {
	var req ListBoardsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()

	total, err := s.boards.GetTotalCount(ctx, req.Search)
	if err != nil {
		return err
	}
	rows, err := s.boards.GetList(ctx, service.ListBoardsInput{
		PageNum:     *req.PageNum,
		RowsPerPage: *req.RowsPerPage,
		Search:      req.Search,
	})
	if err != nil {
		return err
	}

	return c.JSON(ListBoardsResponse{
		Result:     rows,
		TotalCount: total,
		TotalPages: totalPages(total, *req.RowsPerPage),
	})
}

// GetBoardDetail handles POST /api/detail
// @Summary Get a post
// @Tags board
// @Accept json
// @Produce json
// @Param request body BoardIDRequest true "Post id"
// @Success 200 {object} object{result=models.BoardDetail}
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} object{error=string}
// @Router /detail [post]
func (s *Server) GetBoardDetail(c *fiber.Ctx) error {
	var req BoardIDRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := s.boards.GetDetail(c.UserContext(), *req.ID)
	if err != nil {
		return err
	}
	return writeOutcome(c, out)
}

// InsertBoard handles POST /api/insert
// @Summary Create a post
// @Tags board
// @Accept json
// @Produce json
// @Param request body InsertBoardRequest true "New post"
// @Success 201 {object} object{result=int}
// @Failure 400 {object} models.ErrorResponse
// @Router /insert [post]
func (s *Server) InsertBoard(c *fiber.Ctx) error {
	var req InsertBoardRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := s.boards.InsertBoard(c.UserContext(), service.InsertBoardInput{
		Title:    *req.Title,
		Content:  *req.Content,
		Writer:   *req.Writer,
		Password: *req.Password,
	})
	if err != nil {
		return err
	}
	return writeOutcome(c, out)
}

// CheckBoardPassword handles POST /api/checkPassword
// @Summary Check a post password
// @Tags board
// @Accept json
// @Produce json
// @Param request body BoardPasswordRequest true "Post id and password"
// @Success 200 {object} object{result=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} object{result=bool,error=string}
// @Failure 429 {object} models.ErrorResponse
// @Router /checkPassword [post]
func (s *Server) CheckBoardPassword(c *fiber.Ctx) error {
	var req BoardPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ok, err := s.boards.CheckBoardPassword(c.UserContext(), *req.ID, *req.Password)
	if err != nil {
		return err
	}
	if !ok {
		return writeOutcome(c, service.Outcome{
			StatusCode: fiber.StatusUnprocessableEntity,
			Result:     false,
			Error:      service.CodeInvalidPassword,
		})
	}
	return writeOutcome(c, service.Outcome{StatusCode: fiber.StatusOK, Result: true})
}

// DeleteBoard handles POST /api/delete
// @Summary Delete a post
// @Tags board
// @Accept json
// @Produce json
// @Param request body BoardPasswordRequest true "Post id and password"
// @Success 200 {object} object{result=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} object{error=string}
// @Failure 429 {object} models.ErrorResponse
// @Router /delete [post]
func (s *Server) DeleteBoard(c *fiber.Ctx) error {
	var req BoardPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := s.boards.DeleteBoard(c.UserContext(), service.DeleteBoardInput{
		ID:       *req.ID,
		Password: *req.Password,
	})
	if err != nil {
		return err
	}
	return writeOutcome(c, out)
}

// UpdateBoard handles POST /api/update
// @Summary Update a post
// @Description Rewrites title and content; the title gains the edit marker once
// @Tags board
// @Accept json
// @Produce json
// @Param request body UpdateBoardRequest true "Post id, new fields and password"
// @Success 200 {object} object{result=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} object{error=string}
// @Failure 429 {object} models.ErrorResponse
// @Router /update [post]
func (s *Server) UpdateBoard(c *fiber.Ctx) error {
	var req UpdateBoardRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := s.boards.UpdateBoard(c.UserContext(), service.UpdateBoardInput{
		ID:       *req.ID,
		Title:    *req.Title,
		Content:  *req.Content,
		Password: *req.Password,
	})
	if err != nil {
		return err
	}
	return writeOutcome(c, out)
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core/blog"
)

const blogFolder = "blogs"

func (s *server) registerBlogAPI(g *echo.Group) {
	g.GET("/blogs", s.queryPublishedBlogs)
	g.GET("/blogs/featured", s.featuredBlogs)
	g.GET("/blogs/recent", s.recentBlogs)
	g.GET("/blogs/categories", s.blogCategories)
	g.GET("/blogs/:id", retrieve("blog", s.deps.BlogSvc.GetPublished))

	mg := g.Group("/my-blogs", append(s.users.middleware(), s.userMiddleware)...)
	mg.GET("", s.queryMyBlogs)
	mg.POST("", s.createBlog)
	mg.GET("/:id", s.retrieveMyBlog)
	mg.PUT("/:id", s.updateMyBlog)
	mg.DELETE("/:id", s.destroyMyBlog)
	mg.PATCH("/:id/publish", s.togglePublishMyBlog)
}

func (s *server) registerAdminBlogAPI(g *echo.Group) {
	bg := g.Group("/blogs", s.requireRole(editorOnly))
	bg.GET("", s.queryBlogs)
	bg.POST("/upload-image", s.uploadImage(blogFolder))
	bg.GET("/:id", retrieve("blog", s.deps.BlogSvc.GetByID))
	bg.DELETE("/:id", destroy("blog", s.deps.BlogSvc.Delete))
	bg.PATCH("/:id/toggle-publish", update("toggling blog publication", s.deps.BlogSvc.TogglePublish))
	bg.PATCH("/:id/toggle-featured", update("toggling featured blog", s.deps.BlogSvc.ToggleFeatured))
	bg.POST("/:id/upload-image", attachImage(s.deps.MediaSvc, blogFolder, s.deps.BlogSvc.SetImage))
}

// Public endpoints

func (s *server) queryPublishedBlogs(ctx echo.Context) error {
	var filter blog.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	blogs, err := s.deps.BlogSvc.QueryPublished(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying published blogs")
	}
	return ctx.JSON(http.StatusOK, blogs)
}

func (s *server) featuredBlogs(ctx echo.Context) error {
	blogs, err := s.deps.BlogSvc.Featured(ctx.Request().Context(), queryInt(ctx, "limit"))
	if err != nil {
		return errors.Wrap(err, "finding featured blogs")
	}
	return ctx.JSON(http.StatusOK, newItemsResponse(blogs))
}

func (s *server) recentBlogs(ctx echo.Context) error {
	blogs, err := s.deps.BlogSvc.Recent(ctx.Request().Context(), queryInt(ctx, "limit"))
	if err != nil {
		return errors.Wrap(err, "finding recent blogs")
	}
	return ctx.JSON(http.StatusOK, newItemsResponse(blogs))
}

func (s *server) blogCategories(ctx echo.Context) error {
	counts, err := s.deps.BlogSvc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting blog categories")
	}
	return ctx.JSON(http.StatusOK, counts)
}

// Author endpoints

func (s *server) queryMyBlogs(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var filter blog.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	blogs, err := s.deps.BlogSvc.QueryOwned(ctx.Request().Context(), usr.ID, filter, page)
	if err != nil {
		return errors.Wrap(err, "querying user blogs")
	}
	return ctx.JSON(http.StatusOK, blogs)
}

func (s *server) createBlog(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data blog.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	b, err := s.deps.BlogSvc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating blog")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (s *server) retrieveMyBlog(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	b, err := s.deps.BlogSvc.GetOwned(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user blog")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (s *server) updateMyBlog(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data blog.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	b, err := s.deps.BlogSvc.UpdateOwned(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating user blog")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (s *server) destroyMyBlog(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := s.deps.BlogSvc.DeleteOwned(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user blog")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) togglePublishMyBlog(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	b, err := s.deps.BlogSvc.TogglePublishOwned(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling user blog publication")
	}
	return ctx.JSON(http.StatusOK, b)
}

// Admin endpoints

func (s *server) queryBlogs(ctx echo.Context) error {
	var filter blog.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	blogs, err := s.deps.BlogSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying blogs")
	}
	return ctx.JSON(http.StatusOK, blogs)
}

package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	mediasvc "github.com/vistavoyage/voyage/services/media"
)

// UploadResponse is returned when an image is attached to an object.
type UploadResponse[T any] struct {
	Message string          `json:"message"`
	Upload  mediasvc.Upload `json:"upload"`
	Object  T               `json:"object"`
}

func saveFormFile(ctx echo.Context, media *mediasvc.Service, folder string) (mediasvc.Upload, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return mediasvc.Upload{}, errFileRequired
	}
	f, err := fh.Open()
	if err != nil {
		return mediasvc.Upload{}, errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	up, err := media.Save(folder, f)
	if err != nil {
		return mediasvc.Upload{}, errors.Wrap(err, "saving uploaded file")
	}
	return up, nil
}

// uploadImage stores an image without attaching it to anything.
func (s *server) uploadImage(folder string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		up, err := saveFormFile(ctx, s.deps.MediaSvc, folder)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, up)
	}
}

// attachImage stores an image and sets its URL on the object at `:id`.
func attachImage[T any](media *mediasvc.Service, folder string, set func(ctx context.Context, id, url string) (T, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		up, err := saveFormFile(ctx, media, folder)
		if err != nil {
			return err
		}
		obj, err := set(ctx.Request().Context(), ctx.Param("id"), up.URL)
		if err != nil {
			return errors.Wrap(err, "attaching image")
		}
		return ctx.JSON(http.StatusOK, UploadResponse[T]{Message: "Image uploaded successfully", Upload: up, Object: obj})
	}
}

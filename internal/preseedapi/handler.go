package preseedapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/preseed-composer/internal/common"
	"github.com/osbuild/preseed-composer/internal/preseed"
	"github.com/osbuild/preseed-composer/internal/prometheus"
	"github.com/osbuild/preseed-composer/internal/schema"
	"github.com/osbuild/preseed-composer/internal/store"
)

type apiHandlers struct {
	server *Server
	path   string
}

type binder struct{}

func (b binder) Bind(i interface{}, ctx echo.Context) error {
	mediaType, _, err := mime.ParseMediaType(ctx.Request().Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != echo.MIMEApplicationJSON {
		return HTTPError(ErrorUnsupportedMediaType)
	}

	err = json.NewDecoder(ctx.Request().Body).Decode(i)
	if err != nil {
		// the body limit middleware fails the read itself
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return HTTPErrorWithInternal(ErrorBodyDecodingError, err)
	}
	return nil
}

func (h *apiHandlers) GetOpenapi(ctx echo.Context) error {
	doc := h.server.validator.Document()
	if doc == nil {
		return HTTPError(ErrorFailedToLoadOpenAPISpec)
	}
	return ctx.JSON(http.StatusOK, doc)
}

// installConfig binds and validates the request body. Previewing and
// storing go through here so both accept exactly the same inputs.
func (h *apiHandlers) installConfig(ctx echo.Context) (*preseed.InstallConfig, error) {
	var body json.RawMessage
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	config, err := h.server.validator.Validate(body)
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		prometheus.ValidationFailures.Inc()
		common.RequestLogger(ctx).WithField("fields", ve.Error()).Warn("Install config rejected")
		return nil, HTTPErrorWithDetails(ErrorInvalidInstallConfig, err, ve.Fields)
	case errors.Is(err, schema.ErrMalformedInput):
		return nil, HTTPErrorWithInternal(ErrorBodyDecodingError, err)
	case err != nil:
		return nil, HTTPErrorWithInternal(ErrorUnspecified, err)
	}

	return config, nil
}

func (h *apiHandlers) PostPreview(ctx echo.Context) error {
	config, err := h.installConfig(ctx)
	if err != nil {
		return err
	}

	content, err := h.server.renderer.Render(config)
	if err != nil {
		return HTTPErrorWithInternal(ErrorRenderingPreseed, err)
	}

	return ctx.JSON(http.StatusOK, Preview{
		Success:        true,
		PreviewContent: content,
	})
}

func (h *apiHandlers) PostPreseed(ctx echo.Context) error {
	config, err := h.installConfig(ctx)
	if err != nil {
		return err
	}

	content, err := h.server.renderer.Render(config)
	if err != nil {
		return HTTPErrorWithInternal(ErrorRenderingPreseed, err)
	}

	p, err := store.Save(ctx.Request().Context(), h.server.store, config.ConfigName, content, h.server.config.MaxAttempts)
	if err != nil {
		common.RequestLogger(ctx).WithError(err).WithField("config_name", config.ConfigName).Error("Error storing preseed")
		return HTTPErrorWithInternal(ErrorStoringPreseed, err)
	}

	prometheus.StoredPreseeds.Inc()
	common.RequestLogger(ctx).WithFields(logrus.Fields{
		"config_name": p.Name,
		"hash_id":     p.HashID,
	}).Info("Preseed stored")

	href := fmt.Sprintf("%s/preseed/%s", h.path, p.HashID)
	ctx.Response().Header().Set(echo.HeaderLocation, href)
	return ctx.JSON(http.StatusCreated, PreseedReference{
		ObjectReference: ObjectReference{
			Href: href,
			Id:   p.HashID,
			Kind: "Preseed",
		},
		Name: p.Name,
	})
}

func (h *apiHandlers) GetPreseed(ctx echo.Context) error {
	id := ctx.Param("id")
	if !store.ValidIdentifier(id) {
		return HTTPError(ErrorPreseedNotFound)
	}

	p, err := h.server.store.Get(ctx.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return HTTPError(ErrorPreseedNotFound)
	} else if err != nil {
		return HTTPErrorWithInternal(ErrorRetrievingPreseed, err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", downloadName(p)+".cfg"))
	return ctx.Blob(http.StatusOK, "text/plain; charset=UTF-8", []byte(p.Content))
}

// downloadName is the slug of the document's name, or of its identifier
// if the name has none.
func downloadName(p *store.Preseed) string {
	if slug := common.Slugify(p.Name); slug != "" {
		return slug
	}
	return common.Slugify(p.HashID)
}

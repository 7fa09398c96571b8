// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Запрос приходит как multipart/form-data: текстовые поля и файлы avatar
// (обязательный) и coverImage. Файлы сохраняются во временный каталог,
// передаются сервису и удаляются после ответа в любом случае.
package register

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/http/upload"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

// Service описывает бизнес-логику регистрации.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.PublicUser, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log       *slog.Logger
	svc       Service
	uploadDir string // каталог для временных файлов
	maxBytes  int64  // предельный размер тела запроса
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service, uploadDir string, maxBytes int64) *Handler {
	return &Handler{
		log:       log,
		svc:       svc,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя. Аватар обязателен, обложка необязательна.
// @Tags Auth
// @Accept  mpfd
// @Produce  json
// @Param fullName formData string true "Полное имя"
// @Param email formData string true "Email"
// @Param username formData string true "Имя пользователя"
// @Param password formData string true "Пароль"
// @Param avatar formData file true "Аватар"
// @Param coverImage formData file false "Обложка"
// @Success 201 {object} response.Response{data=models.PublicUser} "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Не заполнены поля или нет аватара"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 413 {object} response.ErrorResponse "Слишком большой запрос"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := upload.ParseForm(w, r, h.maxBytes); err != nil {
		return upload.ErrorFor(err)
	}

	var saved []string
	defer func() { upload.Cleanup(log, saved...) }()

	avatarPath, err := upload.SaveFile(r, "avatar", h.uploadDir)
	if err != nil {
		return apierror.Internal(upload.MsgSaveFailed, err)
	}
	saved = append(saved, avatarPath)

	coverPath, err := upload.SaveFile(r, "coverImage", h.uploadDir)
	if err != nil {
		return apierror.Internal(upload.MsgSaveFailed, err)
	}
	saved = append(saved, coverPath)

	fullName := r.FormValue("fullName")
	if fullName == "" {
		fullName = r.FormValue("fullname")
	}

	user, err := h.svc.Register(r.Context(), auth.RegisterInput{
		FullName:       fullName,
		Email:          r.FormValue("email"),
		Username:       r.FormValue("username"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		return err
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	response.Send(w, r, http.StatusCreated, user, "User registered successfully")
	return nil
}

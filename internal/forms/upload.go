package forms

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxUploadSize bounds the whole multipart body of the post forms.
const MaxUploadSize = 10 << 20

// ErrTooLarge is returned by ParsePost when the body exceeds MaxUploadSize.
var ErrTooLarge = errors.New("upload too large")

// TooLargeMessage is shown next to the image field for an oversized upload.
const TooLargeMessage = "Image is too large (10 MB max)."

// Upload is an image file taken from a post form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ParsePost reads the caption and the optional image of a create or edit
// form. The returned Upload is nil when no file was chosen.
func ParsePost(w http.ResponseWriter, r *http.Request) (PostForm, *Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return PostForm{}, nil, ErrTooLarge
		}
		return PostForm{}, nil, fmt.Errorf("parse post form: %w", err)
	}
	form := PostForm{Caption: r.PostFormValue("caption")}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, fmt.Errorf("read image: %w", err)
	}
	defer file.Close()

	if header.Filename == "" {
		return form, nil, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return form, nil, fmt.Errorf("read image: %w", err)
	}
	form.ImageName = header.Filename
	return form, &Upload{
		Filename:    header.Filename,
		ContentType: sniff(data),
		Data:        data,
	}, nil
}

func sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return ""
}

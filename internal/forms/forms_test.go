package forms

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func fieldErrors(t *testing.T, err error) Errors {
	t.Helper()
	if err == nil {
		return nil
	}
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("Validate() returned %T, want forms.Errors", err)
	}
	return errs
}

func TestValidate_Register(t *testing.T) {
	tests := []struct {
		name      string
		form      RegisterForm
		wantField string
		wantMsg   string
	}{
		{name: "valid", form: RegisterForm{Email: "a@x.com", Password: "pw1", Password2: "pw1"}},
		{name: "bad email", form: RegisterForm{Email: "not-an-email", Password: "pw1", Password2: "pw1"}, wantField: "email", wantMsg: "Invalid email address."},
		{name: "mismatch", form: RegisterForm{Email: "a@x.com", Password: "pw1", Password2: "pw2"}, wantField: "password", wantMsg: "Passwords must match"},
		{name: "short password", form: RegisterForm{Email: "a@x.com", Password: "p", Password2: "p"}, wantField: "password"},
		{name: "confirmation too long", form: RegisterForm{Email: "a@x.com", Password: strings.Repeat("p", 31), Password2: strings.Repeat("p", 31)}, wantField: "password2"},
		{name: "email too long", form: RegisterForm{Email: strings.Repeat("a", 55) + "@x.com", Password: "pw1", Password2: "pw1"}, wantField: "email"},
		{name: "missing", form: RegisterForm{}, wantField: "email", wantMsg: "This field is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := fieldErrors(t, Validate(tt.form))
			if tt.wantField == "" {
				if errs != nil {
					t.Fatalf("Validate() = %v, want nil", errs)
				}
				return
			}
			msg, ok := errs[tt.wantField]
			if !ok {
				t.Fatalf("Validate() = %v, want error on %q", errs, tt.wantField)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestValidate_PostCaptionLength(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		wantErr bool
	}{
		{name: "empty", caption: ""},
		{name: "at limit", caption: strings.Repeat("a", MaxCaptionLength)},
		{name: "over limit", caption: strings.Repeat("a", MaxCaptionLength+1), wantErr: true},
		{name: "multibyte at limit", caption: strings.Repeat("é", MaxCaptionLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := fieldErrors(t, Validate(PostForm{Caption: tt.caption}))
			if _, got := errs["caption"]; got != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidate_PostImageType(t *testing.T) {
	for name, wantErr := range map[string]bool{
		"":          false,
		"cat.jpg":   false,
		"cat.JPEG":  false,
		"cat.png":   false,
		"cat.gif":   true,
		"cat":       true,
		"notes.txt": true,
	} {
		errs := fieldErrors(t, Validate(PostForm{ImageName: name}))
		msg, got := errs["image"]
		if got != wantErr {
			t.Errorf("ImageName %q: errors = %v, wantErr %v", name, errs, wantErr)
		}
		if got && msg != "Images only!" {
			t.Errorf("ImageName %q: message = %q", name, msg)
		}
	}
}

func TestParseLogin_RememberMe(t *testing.T) {
	for value, want := range map[string]bool{"on": true, "y": true, "": false, "off": false} {
		body := url.Values{"email": {" a@x.com "}, "password": {"pw1"}, "remember_me": {value}}
		r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		form := ParseLogin(r)
		if form.RememberMe != want {
			t.Errorf("remember_me=%q: RememberMe = %v, want %v", value, form.RememberMe, want)
		}
		if form.Email != "a@x.com" {
			t.Errorf("Email = %q, want trimmed a@x.com", form.Email)
		}
	}
}

func multipartRequest(t *testing.T, caption, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("caption", caption); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/posts/new", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestParsePost(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	t.Run("with image", func(t *testing.T) {
		form, up, err := ParsePost(httptest.NewRecorder(), multipartRequest(t, "hello", "cat.png", png))
		if err != nil {
			t.Fatalf("ParsePost() error: %v", err)
		}
		if form.Caption != "hello" || form.ImageName != "cat.png" {
			t.Errorf("form = %+v", form)
		}
		if up == nil || up.ContentType != "image/png" || !bytes.Equal(up.Data, png) {
			t.Fatalf("upload = %+v", up)
		}
	})

	t.Run("no file chosen", func(t *testing.T) {
		form, up, err := ParsePost(httptest.NewRecorder(), multipartRequest(t, "hello", "", nil))
		if err != nil {
			t.Fatalf("ParsePost() error: %v", err)
		}
		if up != nil || form.ImageName != "" {
			t.Errorf("upload = %+v, form = %+v, want none", up, form)
		}
	})

	t.Run("urlencoded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/posts/new", strings.NewReader("caption=plain"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		form, up, err := ParsePost(httptest.NewRecorder(), r)
		if err != nil {
			t.Fatalf("ParsePost() error: %v", err)
		}
		if form.Caption != "plain" || up != nil {
			t.Errorf("form = %+v, upload = %+v", form, up)
		}
	})

	t.Run("non-image content", func(t *testing.T) {
		_, up, err := ParsePost(httptest.NewRecorder(), multipartRequest(t, "", "cat.jpg", []byte("just text")))
		if err != nil {
			t.Fatalf("ParsePost() error: %v", err)
		}
		if up == nil || up.ContentType != "" {
			t.Errorf("upload = %+v, want empty content type", up)
		}
	})
	t.Run("caption only from body", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.Close()
		r := httptest.NewRequest(http.MethodPost, "/posts/new?caption=from-query", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		form, _, err := ParsePost(httptest.NewRecorder(), r)
		if err != nil {
			t.Fatalf("ParsePost() error: %v", err)
		}
		if form.Caption != "" {
			t.Errorf("caption = %q, want empty", form.Caption)
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		big := append(append([]byte{}, png...), bytes.Repeat([]byte{0}, MaxUploadSize)...)
		_, up, err := ParsePost(httptest.NewRecorder(), multipartRequest(t, "big", "big.png", big))
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("ParsePost() error = %v, want ErrTooLarge", err)
		}
		if up != nil {
			t.Errorf("upload = %d bytes, want none", len(up.Data))
		}
	})

	t.Run("body just under limit", func(t *testing.T) {
		data := append(append([]byte{}, png...), bytes.Repeat([]byte{0}, MaxUploadSize-64<<10)...)
		_, up, err := ParsePost(httptest.NewRecorder(), multipartRequest(t, "", "ok.png", data))
		if err != nil {
			t.Fatalf("ParsePost() error: %v", err)
		}
		if up == nil || len(up.Data) != len(data) {
			t.Fatal("upload under the limit was not read in full")
		}
	})
}

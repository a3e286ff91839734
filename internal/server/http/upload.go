package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const (
	// MaxAvatarSize is the largest accepted avatar file.
	MaxAvatarSize = 5 << 20
	// maxFormOverhead bounds the non-file part of a multipart body.
	maxFormOverhead = 1 << 20
	maxJSONBody     = 1 << 20
)

func errFileTooLarge() error { return common.NewError(common.ErrPayloadTooLarge, "File size exceeds 5MB limit") }
func errUploadFailed() error { return common.BadRequest("File upload failed") }

// decodeBody fills dst from a JSON, urlencoded or multipart body. For
// multipart bodies the single "avatar" file is staged in the upload
// directory and returned; the caller must removeStaged it.
func (s *HTTPServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) (*services.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		fields, upload, err := s.readMultipart(w, r)
		if err != nil {
			return nil, err
		}
		if err := fieldsInto(fields, dst); err != nil {
			removeStaged(upload)
			return nil, err
		}
		return upload, nil

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return nil, common.BadRequest("Invalid request body")
		}
		fields := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		return nil, fieldsInto(fields, dst)

	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return nil, common.BadRequest("Invalid request body")
		}
		return nil, nil
	}
}

// fieldsInto maps form fields onto dst's json-tagged string fields.
func fieldsInto(fields map[string]string, dst any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return common.BadRequest("Invalid request body")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return common.BadRequest("Invalid request body")
	}
	return nil
}

func (s *HTTPServer) readMultipart(w http.ResponseWriter, r *http.Request) (map[string]string, *services.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarSize+maxFormOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, errUploadFailed()
	}

	fields := map[string]string{}
	var upload *services.Upload

	fail := func(err error) (map[string]string, *services.Upload, error) {
		removeStaged(upload)
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, errFileTooLarge()
		}
		return nil, nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(wrapUpload(err))
		}

		if part.FileName() == "" {
			b, err := io.ReadAll(io.LimitReader(part, maxFormOverhead))
			part.Close()
			if err != nil {
				return fail(wrapUpload(err))
			}
			fields[part.FormName()] = string(b)
			continue
		}

		if part.FormName() != common.AvatarFieldName || upload != nil {
			part.Close()
			return fail(errUploadFailed())
		}

		upload, err = s.stage(part)
		part.Close()
		if err != nil {
			return fail(err)
		}
	}

	return fields, upload, nil
}

// wrapUpload keeps body-size errors recognisable and turns anything else
// into a generic upload failure.
func wrapUpload(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return errUploadFailed()
}

type filePart interface {
	io.Reader
	FileName() string
}

// stage copies one file part to the upload directory, enforcing the size
// limit.
func (s *HTTPServer) stage(part filePart) (*services.Upload, error) {
	f, err := filex.CreateUnique(s.uploadDir, part.FileName())
	if err != nil {
		return nil, common.Internal("File upload failed", err)
	}
	upload := &services.Upload{Path: f.Name(), Filename: part.FileName()}

	n, err := io.Copy(f, io.LimitReader(part, MaxAvatarSize+1))
	closeErr := f.Close()
	if err != nil {
		removeStaged(upload)
		return nil, wrapUpload(err)
	}
	if n > MaxAvatarSize {
		removeStaged(upload)
		return nil, errFileTooLarge()
	}
	if closeErr != nil {
		removeStaged(upload)
		return nil, common.Internal("File upload failed", closeErr)
	}
	return upload, nil
}

func removeStaged(u *services.Upload) {
	if u == nil {
		return
	}
	_ = os.Remove(u.Path)
}

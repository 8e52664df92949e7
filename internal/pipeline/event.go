package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
)

// ErrMissingObject is returned when an upload event names no bucket or key.
var ErrMissingObject = errors.New("missing bucket or key parameters")

var validate = validator.New()

// ObjectRef names one uploaded object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// DirectUploadEvent is the plain {bucket, key} form of the upload trigger.
type DirectUploadEvent struct {
	Bucket string `json:"bucket" validate:"required"`
	Key    string `json:"key" validate:"required"`
}

type notificationEvent struct {
	Records []notificationRecord `json:"Records"`
}

type notificationRecord struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"object"`
	S3 *struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3,omitempty"`
}

func (r notificationRecord) ref() (ObjectRef, error) {
	bucket, key := r.Bucket.Name, r.Object.Name
	if key == "" {
		key = r.Object.Key
	}
	if r.S3 != nil {
		if bucket == "" {
			bucket = r.S3.Bucket.Name
		}
		if key == "" {
			key = r.S3.Object.Key
		}
	}
	if bucket == "" || key == "" {
		return ObjectRef{}, ErrMissingObject
	}

	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("decode object key %q: %w", key, err)
	}
	return ObjectRef{Bucket: bucket, Key: decoded}, nil
}

// ParseUploadEvent accepts either a storage notification with Records or a
// direct {bucket, key} body. Notification keys are URL-unescaped.
func ParseUploadEvent(payload []byte) ([]ObjectRef, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("decode upload event: %w", err)
	}

	if _, ok := probe["Records"]; ok {
		var ev notificationEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode upload event: %w", err)
		}
		if len(ev.Records) == 0 {
			return nil, ErrMissingObject
		}
		refs := make([]ObjectRef, 0, len(ev.Records))
		for _, rec := range ev.Records {
			ref, err := rec.ref()
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}

	var direct DirectUploadEvent
	if err := json.Unmarshal(payload, &direct); err != nil {
		return nil, fmt.Errorf("decode upload event: %w", err)
	}
	if err := validate.Struct(direct); err != nil {
		return nil, ErrMissingObject
	}
	return []ObjectRef{{Bucket: direct.Bucket, Key: direct.Key}}, nil
}

package usecase

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMediaType is used when neither the response nor the URL says otherwise
const DefaultMediaType = "image/jpeg"

// supportedMediaTypes are the image formats the vision model accepts
var supportedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var extensionMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// detectMediaType picks the media type for an image: the Content-Type header
// first, then the URL's file extension, then the bytes themselves, and
// finally JPEG.
func detectMediaType(contentType, imageURL string, data []byte) string {
	if mt := mediaTypeFromHeader(contentType); mt != "" {
		return mt
	}
	if mt := mediaTypeFromURL(imageURL); mt != "" {
		return mt
	}
	if len(data) > 0 {
		detected := mimetype.Detect(data)
		for mt := range supportedMediaTypes {
			if detected.Is(mt) {
				return mt
			}
		}
	}
	return DefaultMediaType
}

func mediaTypeFromHeader(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	mt = strings.ToLower(mt)
	if mt == "image/jpg" || mt == "image/pjpeg" {
		mt = "image/jpeg"
	}
	if supportedMediaTypes[mt] {
		return mt
	}
	return ""
}

func mediaTypeFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	return extensionMediaTypes[strings.ToLower(path.Ext(u.Path))]
}

package lucid

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the public Lucid REST API host
	BaseURL = "https://api.lucid.co"

	// APIVersion is sent in the Lucid-Api-Version header
	APIVersion = "1"

	// DefaultContentType is the Accept value for page images
	DefaultContentType = "image/png;dpi=256"

	// DefaultExtension is the file extension for DefaultContentType
	DefaultExtension = "png"

	// DefaultCropMode is the page crop mode
	DefaultCropMode = "content"
)

// MetadataURL returns the contents endpoint for a document
func MetadataURL(baseURL, documentID string) string {
	return fmt.Sprintf("%s/documents/%s/contents", trimBase(baseURL), url.PathEscape(documentID))
}

// PageURL returns the image endpoint for a 1-based page number
func PageURL(baseURL, documentID string, pageNumber int, cropMode string) string {
	if cropMode == "" {
		cropMode = DefaultCropMode
	}
	return fmt.Sprintf("%s/documents/%s?page=%d&crop=%s",
		trimBase(baseURL), url.PathEscape(documentID), pageNumber, url.QueryEscape(cropMode))
}

func trimBase(baseURL string) string {
	if baseURL == "" {
		return BaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// Package validation holds the pure checks applied to wizard input before
// anything is staged. Every check returns nil when the input is acceptable or
// an *apperr.Error of kind validation carrying the exact message shown to the
// user. Nothing here panics, performs I/O or keeps state.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/witverse/internal/apperr"
)

// AssetKind identifies which limits and type rules apply to a file.
type AssetKind string

const (
	KindLogo          AssetKind = "logo"
	KindScreenshot    AssetKind = "screenshot"
	KindBanner        AssetKind = "banner"
	KindBuild         AssetKind = "build"
	KindPrivacyPolicy AssetKind = "privacy_policy"
)

const mb = 1024 * 1024

var limits = map[AssetKind]int64{
	KindLogo:          5 * mb,
	KindScreenshot:    10 * mb,
	KindBanner:        10 * mb,
	KindBuild:         100 * mb,
	KindPrivacyPolicy: 5 * mb,
}

// Kinds lists every asset kind in a stable order.
func Kinds() []AssetKind {
	return []AssetKind{KindLogo, KindScreenshot, KindBanner, KindBuild, KindPrivacyPolicy}
}

// Limit returns the maximum size in bytes for kind, 0 for an unknown kind.
func Limit(kind AssetKind) int64 {
	return limits[kind]
}

// MaxLimit is the largest per-file limit across all kinds.
func MaxLimit() int64 {
	var max int64
	for _, l := range limits {
		if l > max {
			max = l
		}
	}
	return max
}

// ImageTypes are the declared MIME types accepted for logo, screenshots and banner.
var ImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/svg+xml"}

// BuildExtensions are accepted regardless of the reported MIME type: browsers
// commonly report apk and ipa files as application/octet-stream.
var BuildExtensions = []string{"zip", "apk", "ipa"}

// BuildTypes is the MIME fallback used when the extension is not recognised.
var BuildTypes = []string{
	"application/zip",
	"application/vnd.android.package-archive",
	"application/octet-stream",
}

const pdfType = "application/pdf"

// Field names used in validation errors.
const (
	FieldName             = "name"
	FieldShortDescription = "shortDescription"
	FieldFullDescription  = "fullDescription"
	FieldCategory         = "category"
	FieldVersion          = "version"
	FieldEmail            = "email"
	FieldMobile           = "mobile"
	FieldDisplayName      = "displayName"
	FieldPassword         = "password"
)

// CheckSize fails when size exceeds the limit of kind.
func CheckSize(kind AssetKind, size int64) error {
	limit, ok := limits[kind]
	if !ok {
		return apperr.Validation(string(kind), fmt.Sprintf("Unknown asset kind %q", kind))
	}
	if size > limit {
		return apperr.Validation(string(kind), fmt.Sprintf("File size exceeds %dMB", limit/mb))
	}
	return nil
}

// CheckImageType requires one of ImageTypes.
func CheckImageType(field, contentType string) error {
	if contains(ImageTypes, normalizeType(contentType)) {
		return nil
	}
	short := make([]string, 0, len(ImageTypes))
	for _, t := range ImageTypes {
		short = append(short, strings.TrimPrefix(t, "image/"))
	}
	return apperr.Validation(field, "Invalid file type. Allowed: "+strings.Join(short, ", "))
}

// CheckBuildType accepts a known extension first and only then consults the
// MIME allow-list.
func CheckBuildType(filename, contentType string) error {
	if contains(BuildExtensions, Extension(filename)) {
		return nil
	}
	if contains(BuildTypes, normalizeType(contentType)) {
		return nil
	}
	return apperr.Validation(string(KindBuild), "Invalid file type. Allowed: zip, apk, ipa")
}

// CheckPolicyType only accepts PDF documents.
func CheckPolicyType(contentType string) error {
	if normalizeType(contentType) != pdfType {
		return apperr.Validation(string(KindPrivacyPolicy), "Only PDF files are allowed")
	}
	return nil
}

// CheckFile applies the size and type rules of kind in the order the upload
// forms report them: the policy document is type checked first, every other
// kind is size checked first.
func CheckFile(kind AssetKind, filename, contentType string, size int64) error {
	switch kind {
	case KindLogo, KindScreenshot, KindBanner:
		if err := CheckSize(kind, size); err != nil {
			return err
		}
		return CheckImageType(string(kind), contentType)
	case KindBuild:
		if err := CheckSize(kind, size); err != nil {
			return err
		}
		return CheckBuildType(filename, contentType)
	case KindPrivacyPolicy:
		if err := CheckPolicyType(contentType); err != nil {
			return err
		}
		return CheckSize(kind, size)
	default:
		return apperr.Validation(string(kind), fmt.Sprintf("Unknown asset kind %q", kind))
	}
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

var emailExp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail checks the local@domain.tld shape only.
func IsValidEmail(email string) bool {
	return emailExp.MatchString(email)
}

// CheckEmail wraps IsValidEmail with the form message.
func CheckEmail(email string) error {
	if !IsValidEmail(email) {
		return apperr.Validation(FieldEmail, "Please enter a valid email address")
	}
	return nil
}

var mobileExp = regexp.MustCompile(`^[0-9]{10}$`)

// IsValidMobile requires exactly ten ASCII digits with no country code.
func IsValidMobile(mobile string) bool {
	return mobileExp.MatchString(mobile)
}

// CheckMobile wraps IsValidMobile with the registration form message.
func CheckMobile(mobile string) error {
	if !IsValidMobile(mobile) {
		return apperr.Validation(FieldMobile, "Must be exactly 10 digits")
	}
	return nil
}

// CheckName requires an app name of at least 3 characters.
func CheckName(name string) error {
	if length(name) < 3 {
		return apperr.Validation(FieldName, "App name must be at least 3 characters.")
	}
	return nil
}

// CheckShortDescription requires a non-empty description of at most 100 characters.
func CheckShortDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return apperr.Validation(FieldShortDescription, "Short description is required.")
	}
	if length(s) > 100 {
		return apperr.Validation(FieldShortDescription, "Short description must be 100 characters or less.")
	}
	return nil
}

// CheckFullDescription requires at least 10 characters.
func CheckFullDescription(s string) error {
	if length(s) < 10 {
		return apperr.Validation(FieldFullDescription, "Description must be at least 10 characters.")
	}
	return nil
}

// CheckCategory requires a selected category id.
func CheckCategory(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation(FieldCategory, "Please select a category.")
	}
	return nil
}

// CheckVersion requires a non-empty version string.
func CheckVersion(v string) error {
	if strings.TrimSpace(v) == "" {
		return apperr.Validation(FieldVersion, "Version number is required")
	}
	return nil
}

// CheckDisplayName is used for account registration.
func CheckDisplayName(name string) error {
	if length(name) < 2 {
		return apperr.Validation(FieldDisplayName, "Name must be at least 2 characters")
	}
	return nil
}

// CheckPassword is used for account registration.
func CheckPassword(pw string) error {
	if length(pw) < 8 {
		return apperr.Validation(FieldPassword, "Password must be at least 8 characters")
	}
	return nil
}

// FormatSize renders size the way the build step displays it.
func FormatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < mb:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	}
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func normalizeType(contentType string) string {
	t := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

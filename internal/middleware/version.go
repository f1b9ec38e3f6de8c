package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/temcen/linucb-fashion/pkg/models"
)

// VersionKey is the gin context key holding the resolved protocol
// version for the request.
const VersionKey = "api_version"

var (
	pathVersionRe   = regexp.MustCompile(`^/api/v(\d+)(/.*)?$`)
	acceptVersionRe = regexp.MustCompile(`application/vnd\.fashion-api\.v(\d+)\+json`)
)

// Version resolves the requested protocol version with the documented
// precedence: path prefix, API-Version header, Accept vnd header,
// version query parameter; absent all four, the current version. Every
// response echoes API-Version, API-Current-Version and
// API-Supported-Versions. Unknown versions are rejected with 400;
// versions below the supported floor with 410.
func Version(current int, supported []int) gin.HandlerFunc {
	supportedSet := make(map[int]struct{}, len(supported))
	minSupported := current
	labels := make([]string, 0, len(supported))
	for _, v := range supported {
		supportedSet[v] = struct{}{}
		if v < minSupported {
			minSupported = v
		}
		labels = append(labels, "v"+strconv.Itoa(v))
	}
	supportedHeader := strings.Join(labels, ", ")

	return func(c *gin.Context) {
		version := current
		explicit := false

		if m := pathVersionRe.FindStringSubmatch(c.Request.URL.Path); m != nil {
			version, _ = strconv.Atoi(m[1])
			explicit = true
		} else if h := c.GetHeader("API-Version"); h != "" {
			if v, err := strconv.Atoi(strings.TrimPrefix(h, "v")); err == nil {
				version = v
				explicit = true
			}
		} else if m := acceptVersionRe.FindStringSubmatch(c.GetHeader("Accept")); m != nil {
			version, _ = strconv.Atoi(m[1])
			explicit = true
		} else if q := c.Query("version"); q != "" {
			if v, err := strconv.Atoi(strings.TrimPrefix(q, "v")); err == nil {
				version = v
				explicit = true
			}
		}

		c.Header("API-Version", "v"+strconv.Itoa(version))
		c.Header("API-Current-Version", "v"+strconv.Itoa(current))
		c.Header("API-Supported-Versions", supportedHeader)

		if _, ok := supportedSet[version]; !ok && explicit {
			status := http.StatusBadRequest
			message := "unknown API version v" + strconv.Itoa(version)
			if version < minSupported && version > 0 {
				status = http.StatusGone
				message = "API version v" + strconv.Itoa(version) + " has been retired"
			}
			c.AbortWithStatusJSON(status, models.ErrorResponse{
				Success: false,
				Error:   "unsupported_version",
				Message: message,
				Details: gin.H{"supported_versions": labels},
			})
			return
		}

		c.Set(VersionKey, version)
		c.Next()
	}
}

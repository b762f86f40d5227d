package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/go-resty/resty/v2"
)

const privateAttachmentMessage = "attachment URL must not point to a private address"

var errBlockedAddress = errors.New("address is not publicly routable")

// carrier-grade NAT, not covered by netip's IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

type AttachmentServiceInterface interface {
	// Check rejects URLs the service will not download from.
	Check(rawURL string) error
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// AttachmentService downloads stored submission attachments. With BaseURLs
// set only URLs under those prefixes are fetched; otherwise any URL that
// resolves to a public address is.
type AttachmentService struct {
	MaxBytes int64
	BaseURLs []string
	client   *resty.Client
}

func NewAttachmentService(maxBytes int64, baseURLs []string, timeout time.Duration) *AttachmentService {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if len(baseURLs) == 0 {
		dialer.Control = publicAddressOnly
		// a proxy would dial the target on our behalf and bypass the guard
		transport.Proxy = nil
	}
	transport.DialContext = dialer.DialContext

	client := resty.New().SetTransport(transport)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if maxBytes > 0 {
		client.SetResponseBodyLimit(int(maxBytes))
	}

	policies := []any{resty.FlexibleRedirectPolicy(5)}
	if len(baseURLs) > 0 {
		hosts := make([]string, 0, len(baseURLs))
		for _, base := range baseURLs {
			if u, err := url.Parse(base); err == nil {
				hosts = append(hosts, u.Hostname())
			}
		}
		policies = append(policies, resty.DomainCheckRedirectPolicy(hosts...))
	}
	client.SetRedirectPolicy(policies...)

	return &AttachmentService{
		MaxBytes: maxBytes,
		BaseURLs: baseURLs,
		client:   client,
	}
}

func (s *AttachmentService) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return grading.ValidationError("attachment URL must be an absolute http(s) URL")
	}

	if len(s.BaseURLs) > 0 {
		for _, base := range s.BaseURLs {
			if underBase(u, base) {
				return nil
			}
		}
		return grading.ValidationError("attachment URL is not on an allowed storage host")
	}

	host := u.Hostname()
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return grading.ValidationError(privateAttachmentMessage)
	}
	if ip, err := netip.ParseAddr(host); err == nil && !isPublicAddr(ip) {
		return grading.ValidationError(privateAttachmentMessage)
	}
	return nil
}

func (s *AttachmentService) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := s.Check(rawURL); err != nil {
		return nil, err
	}

	resp, err := s.client.R().SetContext(ctx).Get(rawURL)
	switch {
	case errors.Is(err, resty.ErrResponseBodyTooLarge):
		return nil, s.tooLarge()
	case errors.Is(err, errBlockedAddress):
		return nil, grading.NewError(grading.ErrValidation, privateAttachmentMessage, err)
	case err != nil:
		return nil, grading.UpstreamError("Failed to fetch PDF file", 0, err)
	}
	if resp.IsError() {
		log.Printf("Attachment fetch error: %s %s", rawURL, resp.Status())
		return nil, grading.UpstreamError(fmt.Sprintf("Failed to fetch PDF file: %s", resp.Status()), resp.StatusCode(), nil)
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, grading.ValidationError("attachment is empty")
	}
	return body, nil
}

func (s *AttachmentService) tooLarge() error {
	return grading.ValidationError(fmt.Sprintf("attachment is too large (max %s)", formatBytes(s.MaxBytes)))
}

// underBase reports whether u is base itself or lies below it.
func underBase(u *url.URL, base string) bool {
	b, err := url.Parse(base)
	if err != nil || !strings.EqualFold(u.Scheme, b.Scheme) || !strings.EqualFold(u.Host, b.Host) {
		return false
	}
	prefix := strings.TrimSuffix(b.Path, "/")
	p := path.Clean("/" + u.Path)
	return prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/")
}

// publicAddressOnly runs after DNS resolution, so it also covers hostnames
// that resolve to internal addresses.
func publicAddressOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublicAddr(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsValid() &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsMulticast() &&
		!ip.IsUnspecified() &&
		!sharedAddressSpace.Contains(ip)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024 && n%(1024*1024) == 0:
		return fmt.Sprintf("%d MB", n/(1024*1024))
	case n >= 1024 && n%1024 == 0:
		return fmt.Sprintf("%d KB", n/1024)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

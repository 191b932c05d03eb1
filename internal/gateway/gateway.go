package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/jabl/fancyquota/internal/logger"
	"github.com/jabl/fancyquota/internal/quota"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"
)

// DefaultTimeout bounds a single gateway request.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 64 << 10

// Error is returned for any failed gateway query.
var Error = errs.Class("quota gateway")

// Client queries a remote quota gateway fronting a filesystem whose quota
// is not visible over NFS. The gateway answers GET <url>/?gid=N with the
// whitespace separated figures of that group.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, l *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := cleanhttp.DefaultClient()
	c.Timeout = timeout
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    c,
		log:     l.WithField(logger.GatewayURLKey, baseURL),
	}
}

// GroupQuota fetches the quota figures of group gid.
func (c *Client) GroupQuota(ctx context.Context, gid int) (quota.Figures, error) {
	u := c.baseURL + "/?" + url.Values{"gid": []string{strconv.Itoa(gid)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return quota.Figures{}, Error.Wrap(err)
	}
	log := logger.WithRunContext(ctx, c.log).WithField(logger.GIDKey, gid)
	log.Debug("querying quota gateway")

	res, err := c.http.Do(req)
	if err != nil {
		return quota.Figures{}, Error.Wrap(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return quota.Figures{}, Error.New("gid %d: unexpected status %s", gid, res.Status)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return quota.Figures{}, Error.Wrap(err)
	}
	f, err := ParseResponse(body)
	if err != nil {
		return quota.Figures{}, err
	}
	log.WithField("figures", fmt.Sprintf("%+v", f)).Debug("quota gateway answered")
	return f, nil
}

// ParseResponse parses a gateway body of the form
//
//	[filesystem] used[*] quota limit grace ...
//
// where the figures are 1 KiB blocks. A grace of "-" means none. Tokens
// after the grace, e.g. file counts, are ignored.
func ParseResponse(body []byte) (quota.Figures, error) {
	fields := strings.Fields(string(body))
	if len(fields) > 0 && !isNumber(strings.TrimSuffix(fields[0], "*")) {
		fields = fields[1:]
	}
	if len(fields) < 3 {
		return quota.Figures{}, Error.New("short response %q", string(body))
	}
	var blocks [3]uint64
	for i := range blocks {
		v, err := strconv.ParseUint(strings.TrimSuffix(fields[i], "*"), 10, 64)
		if err != nil {
			return quota.Figures{}, Error.New("field %d: %v", i+1, err)
		}
		blocks[i] = v
	}
	f := quota.Figures{
		UsedBytes:      blocks[0] * quota.BlockSize,
		SoftLimitBytes: blocks[1] * quota.BlockSize,
		HardLimitBytes: blocks[2] * quota.BlockSize,
		Grace:          quota.NoGrace,
	}
	if len(fields) > 3 {
		f.Grace = quota.ParseGrace(fields[3])
	}
	return f, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

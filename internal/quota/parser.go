package quota

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/jabl/fancyquota/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"
)

const (
	headerMarker = "Disk quotas for"
	columnHeader = "Filesystem blocks quota limit"
)

// ErrMalformed is returned for quota output that cannot be parsed.
var ErrMalformed = errs.Class("malformed quota output")

// Resolver maps the filesystem identifier of a row to a mountpoint.
type Resolver interface {
	Resolve(raw string) string
}

// Parse reads quota(1) output and returns one block per principal header.
//
// A row that cannot be parsed drops the block it belongs to; parsing carries
// on with the next header. The blocks parsed successfully are always returned,
// together with the combined errors of the dropped ones.
func Parse(r io.Reader, res Resolver, l *logrus.Entry) ([]Block, error) {
	p := &parser{res: res, log: l}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	p.flush()
	if err := scanner.Err(); err != nil {
		p.errs.Add(ErrCommand.Wrap(err))
	}
	return p.blocks, p.errs.Err()
}

type parser struct {
	res Resolver
	log *logrus.Entry

	blocks []Block
	cur    *Block
	broken bool
	// pending holds a filesystem printed alone on its line; its figures follow on the next one.
	pending string
	lineNo  int
	errs    errs.Group
}

func (p *parser) line(line string) {
	p.lineNo++
	if strings.Contains(line, headerMarker) {
		p.flush()
		b, err := parseHeader(line)
		if err != nil {
			p.fail(err)
			return
		}
		p.cur = &b
		return
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || isColumnHeader(fields) {
		return
	}
	if p.cur == nil {
		p.fail(ErrMalformed.New("line %d: quota row without a preceding header", p.lineNo))
		return
	}
	if p.broken {
		return
	}

	if p.pending != "" {
		fields = append([]string{p.pending}, fields...)
		p.pending = ""
	} else if len(fields) == 1 {
		p.pending = fields[0]
		return
	}

	raw, figures, err := parseRow(fields)
	if err != nil {
		p.fail(ErrMalformed.New("line %d: %v", p.lineNo, err))
		return
	}
	mp := p.res.Resolve(raw)
	log := p.log.WithFields(logrus.Fields{logger.PrincipalKey: p.cur.Label(), logger.DeviceKey: raw, logger.MountpointKey: mp})
	if !figures.HasQuota() {
		log.Debug("no quota configured, skipping entry")
		return
	}
	log.Debug("parsed quota entry")
	p.cur.Set(mp, figures)
}

// fail records err and drops the current block.
func (p *parser) fail(err error) {
	p.log.WithField(logger.LineKey, p.lineNo).WithError(err).Warn("skipping malformed quota output")
	p.errs.Add(err)
	p.broken = p.cur != nil
}

func (p *parser) flush() {
	if p.cur != nil && p.pending != "" && !p.broken {
		p.fail(ErrMalformed.New("line %d: filesystem %q without figures", p.lineNo, p.pending))
	}
	if p.cur != nil && !p.broken {
		p.blocks = append(p.blocks, *p.cur)
	}
	p.cur = nil
	p.broken = false
	p.pending = ""
}

// parseHeader handles e.g. "Disk quotas for group domain users (gid 513):".
func parseHeader(line string) (Block, error) {
	rest := line[strings.Index(line, headerMarker)+len(headerMarker):]
	if i := strings.Index(rest, " ("); i >= 0 {
		rest = rest[:i]
	}
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(rest), ":"))
	if len(fields) < 2 {
		return Block{}, ErrMalformed.New("header %q has no principal", strings.TrimSpace(line))
	}
	kind, ok := parsePrincipalKind(fields[0])
	if !ok {
		return Block{}, ErrMalformed.New("header %q has unknown principal kind %q", strings.TrimSpace(line), fields[0])
	}
	return Block{Kind: kind, Name: strings.Join(fields[1:], " ")}, nil
}

func isColumnHeader(fields []string) bool {
	return strings.HasPrefix(strings.Join(fields, " "), columnHeader)
}

// parseRow reads `filesystem blocks[*] quota limit [grace] [files quota limit [grace]]`.
//
// Whether the block grace column is present depends on the token count:
//
//	4  fs blocks quota limit
//	5  fs blocks quota limit grace
//	7  fs blocks quota limit files quota limit
//	8  block grace present only if blocks carries the over quota marker
//	9  every column, as printed with -p
func parseRow(fields []string) (string, Figures, error) {
	if len(fields) < 4 {
		return "", Figures{}, errs.New("expected at least 4 fields, got %d", len(fields))
	}
	usedToken := fields[1]
	over := strings.HasSuffix(usedToken, "*")
	used, err := parseBlocks(strings.TrimSuffix(usedToken, "*"))
	if err != nil {
		return "", Figures{}, err
	}
	soft, err := parseBlocks(fields[2])
	if err != nil {
		return "", Figures{}, err
	}
	hard, err := parseBlocks(fields[3])
	if err != nil {
		return "", Figures{}, err
	}

	grace := NoGrace
	n := len(fields)
	if n == 5 || n >= 9 || (over && n != 7 && n > 4) {
		grace = ParseGrace(fields[4])
	}

	return fields[0], Figures{
		UsedBytes:      used * BlockSize,
		SoftLimitBytes: soft * BlockSize,
		HardLimitBytes: hard * BlockSize,
		Grace:          grace,
	}, nil
}

func parseBlocks(token string) (uint64, error) {
	v, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, errs.New("block count %q is not a number", token)
	}
	return v, nil
}

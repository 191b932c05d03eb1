package app_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/jabl/fancyquota/internal/app"
	"github.com/jabl/fancyquota/internal/config"
	"github.com/jabl/fancyquota/internal/filesystem"
	fsmock "github.com/jabl/fancyquota/internal/filesystem/mock"
	"github.com/jabl/fancyquota/internal/identity"
	idmock "github.com/jabl/fancyquota/internal/identity/mock"
	"github.com/jabl/fancyquota/internal/mount"
	"github.com/jabl/fancyquota/internal/quota"
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const quotaHeader = "     Filesystem  blocks   quota   limit   grace   files   quota   limit   grace"

// writeQuotaScript creates an executable printing output the way quota(1) does.
func writeQuotaScript(dir, output string) string {
	path := filepath.Join(dir, "quota")
	script := "#!/bin/sh\ncat <<'QUOTA_EOF'\n" + output + "\nQUOTA_EOF\nexit 1\n"
	Expect(os.WriteFile(path, []byte(script), 0o755)).To(Succeed())
	return path
}

func writeMounts(dir string, lines ...string) string {
	path := filepath.Join(dir, "mounts")
	Expect(os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)).To(Succeed())
	return path
}

// rowFields returns the fields of the first table line starting with label.
func rowFields(out, label string) []string {
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] == label {
			return fields
		}
	}
	return nil
}

var _ = Describe("Run", func() {
	var (
		dir    string
		stdout *bytes.Buffer
		fs     *fsmock.MockFilesystem
		cfg    config.Config
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		l := logrus.New()
		l.SetOutput(GinkgoWriter)
		fs = fsmock.NewFilesystem(l)
		cfg = config.Config{
			LogLevel:     "error",
			MountsPath:   writeMounts(dir, "/dev/sda1 /home ext4 rw,relatime 0 0"),
			QuotaCommand: writeQuotaScript(dir, ""),
			Filesystem:   fs,
			Identity: &idmock.MockDirectory{
				Principal: identity.Principal{Login: "alice", UID: 1000, EUID: 1000, GIDs: []int{1000, 2000}},
				Groups:    map[int]string{1000: "alice", 2000: "physics", 3000: "domain users"},
			},
			Stdout: stdout,
			Width:  80,
		}
	})

	It("reports a user quota from the quota command", func() {
		cfg.QuotaCommand = writeQuotaScript(dir, heredoc.Doc(`
			Disk quotas for user alice (uid 1000):
			`+quotaHeader+`
			/home 1024 2048 4096 0
		`))

		Expect(app.Run(context.Background(), cfg)).To(Succeed())
		out := stdout.String()
		Expect(out).To(ContainSubstring("User/Group"))
		Expect(rowFields(out, "u:alice")).To(Equal([]string{"u:alice", "/home", "1.0M", "50", "2.1M", "4.2M"}))
	})

	It("shows the remaining grace days of an exceeded quota", func() {
		deadline := time.Now().AddDate(0, 0, 5).Unix()
		cfg.QuotaCommand = writeQuotaScript(dir, heredoc.Docf(`
			Disk quotas for user alice (uid 1000):
			%s
			/home 3000* 2048 4096 %d 10 0 0 0
		`, quotaHeader, deadline))

		Expect(app.Run(context.Background(), cfg)).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("5days"))
		Expect(stdout.String()).To(ContainSubstring("146"))
	})

	It("hides filtered groups and visits configured directories", func() {
		cfg.Filter.Groups = []string{"domain users"}
		cfg.Visit.Dirs = []string{"/home/alice", "/usr"}
		cfg.QuotaCommand = writeQuotaScript(dir, heredoc.Doc(`
			Disk quotas for user alice (uid 1000):
			/home 10 2048 4096 0
			Disk quotas for group domain users (gid 3000):
			/home 20 2048 4096 0
			Disk quotas for group physics (gid 2000):
			/home 30 2048 4096 0
		`))

		Expect(app.Run(context.Background(), cfg)).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("u:alice"))
		Expect(stdout.String()).To(ContainSubstring("g:physics"))
		Expect(stdout.String()).NotTo(ContainSubstring("domain users"))
		Expect(fs.Visited()).To(Equal([]string{"/home/alice", "/usr"}))
	})

	It("keeps going past a malformed quota block", func() {
		cfg.QuotaCommand = writeQuotaScript(dir, heredoc.Doc(`
			Disk quotas for group broken (gid 4000):
			/home lots 2048 4096 0
			Disk quotas for user alice (uid 1000):
			/home 10 2048 4096 0
		`))

		Expect(app.Run(context.Background(), cfg)).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("u:alice"))
		Expect(stdout.String()).NotTo(ContainSubstring("broken"))
	})

	It("combines gateway and capacity rows for NFS mounts", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("gid") != "2000" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintln(w, "/lustre 500 1000 2000 -")
		}))
		DeferCleanup(srv.Close)

		cfg.MountsPath = writeMounts(dir,
			"/dev/sda1 /home ext4 rw 0 0",
			"nfs1:/export/scratch/physics /scratch/physics nfs4 rw 0 0",
			"nfs1:/export/scratch/chem /scratch/chem nfs4 rw 0 0",
			"nfs2:/proj /proj nfs rw 0 0",
		)
		cfg.Gateway = config.GatewayConfig{URL: srv.URL, Dirs: []string{"/scratch"}, Timeout: time.Second}
		cfg.MetricsFile = filepath.Join(dir, "fancyquota.prom")
		fs.Groups["/scratch/physics"] = 2000
		fs.Groups["/scratch/chem"] = 3000
		stats := filesystem.CapacityStatistics{TotalBlocks: 1000, FreeBlocks: 750, AvailableBlocks: 700, FragmentSize: 4096}
		fs.Stats["/scratch/chem"] = stats
		fs.Stats["/proj"] = stats
		fs.Unreadable["/scratch/chem"] = true

		Expect(app.Run(context.Background(), cfg)).To(Succeed())
		out := stdout.String()
		Expect(out).To(ContainSubstring("g:physics"))
		Expect(out).To(ContainSubstring("/scratch/physics"))
		Expect(out).To(ContainSubstring("/proj"))
		Expect(out).NotTo(ContainSubstring("/scratch/chem"))

		metrics, err := os.ReadFile(cfg.MetricsFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(metrics)).To(ContainSubstring(`mountpoint="/scratch/physics"`))
		Expect(string(metrics)).To(ContainSubstring(`source="capacity"`))
	})

	It("fails when the mount table cannot be read", func() {
		cfg.MountsPath = filepath.Join(dir, "missing")
		err := app.Run(context.Background(), cfg)
		Expect(mount.ErrIO.Has(err)).To(BeTrue())
	})

	It("fails when the quota command cannot be run", func() {
		cfg.QuotaCommand = filepath.Join(dir, "no-quota")
		err := app.Run(context.Background(), cfg)
		Expect(quota.ErrCommand.Has(err)).To(BeTrue())
	})

	It("rejects an unknown log level", func() {
		cfg.LogLevel = "loud"
		Expect(app.Run(context.Background(), cfg)).NotTo(Succeed())
	})
})

var _ = Describe("PrintVersion", func() {
	It("prints version, commit and tree state", func() {
		var buf bytes.Buffer
		app.PrintVersion(&buf)
		Expect(buf.String()).To(Equal(fmt.Sprintf("%s - %s (%s)\n", app.GetVersion(), app.GetCommit(), app.GetTreeState())))
	})
})

package main

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

// capture records the command a parse produced instead of running it.
type capture struct {
	commands []app.Command
	flags    []*cobra.Command
	prompts  int
}

func (c *capture) run(cmd *cobra.Command, command app.Command) error {
	c.commands = append(c.commands, command)
	c.flags = append(c.flags, cmd)
	return nil
}

func (c *capture) prompt(string) (string, error) {
	c.prompts++
	return "prompted-secret", nil
}

func (c *capture) last() app.Command {
	Expect(c.commands).NotTo(BeEmpty())
	return c.commands[len(c.commands)-1]
}

var _ = Describe("cifscloak command line", func() {
	var (
		rec  *capture
		root *cobra.Command
		out  *bytes.Buffer
	)

	execute := func(args ...string) error {
		root.SetArgs(args)
		return root.Execute()
	}

	BeforeEach(func() {
		rec = &capture{}
		out = &bytes.Buffer{}
		root = newRootCommand(rec.run, rec.prompt)
		root.SetOut(out)
		root.SetErr(out)
	})

	Describe("addmount", func() {
		It("parses every field", func() {
			Expect(execute("addmount",
				"-n", "films", "-s", "films", "-i", "192.168.1.10",
				"-m", "/mnt/films", "-u", "alice", "-p", "s3cret", "-o", "domain=home,ro",
			)).To(Succeed())

			add, ok := rec.last().(app.AddMount)
			Expect(ok).To(BeTrue())
			Expect(add.Credential.Name).To(Equal("films"))
			Expect(add.Credential.Share).To(Equal("films"))
			Expect(add.Credential.Address).To(Equal("192.168.1.10"))
			Expect(add.Credential.MountPoint).To(Equal("/mnt/films"))
			Expect(add.Credential.User).To(Equal("alice"))
			Expect(add.Credential.Password).To(Equal("s3cret"))
			Expect(add.Credential.Options).To(Equal("domain=home,ro"))
			Expect(rec.prompts).To(Equal(0))
		})

		It("prompts for the password when -p is omitted", func() {
			Expect(execute("addmount",
				"-n", "films", "-s", "films", "-i", "nas", "-m", "/mnt/films", "-u", "alice",
			)).To(Succeed())

			Expect(rec.prompts).To(Equal(1))
			Expect(rec.last().(app.AddMount).Credential.Password).To(Equal("prompted-secret"))
		})

		It("requires the share fields", func() {
			Expect(execute("addmount", "-n", "films")).NotTo(Succeed())
			Expect(rec.commands).To(BeEmpty())
		})
	})

	Describe("removemounts", func() {
		It("accepts several names after -n", func() {
			Expect(execute("removemounts", "-n", "films", "music")).To(Succeed())
			Expect(rec.last()).To(Equal(app.RemoveMounts{Names: []string{"films", "music"}}))
		})
	})

	Describe("mount", func() {
		It("collects names and flags", func() {
			Expect(execute("mount", "-u", "-r", "6", "-w", "2", "-n", "films", "music")).To(Succeed())

			m := rec.last().(app.Mount)
			Expect(m.Names).To(Equal([]string{"films", "music"}))
			Expect(m.Unmount).To(BeTrue())
			Expect(m.All).To(BeFalse())

			flags := rec.flags[0].Flags()
			Expect(flags.Changed("retries")).To(BeTrue())
			Expect(flags.Lookup("retries").Value.String()).To(Equal("6"))
			Expect(flags.Lookup("waitsecs").Value.String()).To(Equal("2"))
		})

		It("accepts --all", func() {
			Expect(execute("mount", "-a")).To(Succeed())
			Expect(rec.last().(app.Mount).All).To(BeTrue())
		})

		It("rejects names together with --all", func() {
			Expect(execute("mount", "-a", "-n", "films")).NotTo(Succeed())
			Expect(rec.commands).To(BeEmpty())
		})

		It("requires names or --all", func() {
			Expect(execute("mount")).NotTo(Succeed())
			Expect(rec.commands).To(BeEmpty())
		})

		It("exposes global flags to the configuration layer", func() {
			Expect(execute("--home", "/srv", "--debug", "mount", "-a")).To(Succeed())
			flags := rec.flags[0].Flags()
			Expect(flags.Lookup("home").Value.String()).To(Equal("/srv"))
			Expect(flags.Changed("debug")).To(BeTrue())
		})
	})

	Describe("systemdfile", func() {
		It("records the executable and names", func() {
			Expect(execute("systemdfile", "-n", "films", "music")).To(Succeed())

			s := rec.last().(app.SystemdFile)
			Expect(s.Names).To(Equal([]string{"films", "music"}))
			Expect(filepath.IsAbs(s.Executable)).To(BeTrue())
		})
	})

	Describe("listmounts, status and audit", func() {
		It("map to their commands", func() {
			Expect(execute("listmounts")).To(Succeed())
			Expect(rec.last()).To(Equal(app.ListMounts{}))

			Expect(execute("status")).To(Succeed())
			Expect(rec.last()).To(Equal(app.Status{}))

			Expect(execute("audit", "-l", "5")).To(Succeed())
			Expect(rec.last()).To(Equal(app.Audit{Limit: 5}))
		})
	})
})

var _ = Describe("cli end to end", func() {
	var (
		stdout, stderr *bytes.Buffer
		c              *cli
	)

	BeforeEach(func() {
		GinkgoT().Setenv("CIFSCLOAK_HOME", GinkgoT().TempDir())
		stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
		c = newCLI(stdout, stderr)
	})

	It("adds, lists and removes a share", func() {
		Expect(c.execute(context.Background(), []string{"addmount",
			"-n", "films", "-s", "films", "-i", "192.168.1.10", "-m", "/mnt/films", "-u", "alice", "-p", "pw",
		})).To(Equal(0))

		Expect(c.execute(context.Background(), []string{"listmounts"})).To(Equal(0))
		Expect(stdout.String()).To(ContainSubstring(`"mountpoint": "/mnt/films"`))
		Expect(stdout.String()).NotTo(ContainSubstring(`"pw"`))

		Expect(c.execute(context.Background(), []string{"removemounts", "-n", "films"})).To(Equal(0))
		stdout.Reset()
		Expect(c.execute(context.Background(), []string{"listmounts"})).To(Equal(0))
		Expect(stdout.String()).To(Equal("{}\n"))
	})

	It("exits 1 with a report when a name is missing", func() {
		Expect(c.execute(context.Background(), []string{"mount", "-n", "ghost"})).To(Equal(1))
		Expect(stdout.String()).To(ContainSubstring(`"failed": [`))
		Expect(stdout.String()).To(ContainSubstring("cifs name ghost not found in cifstab"))
	})

	It("prints the error and hint for a duplicate name", func() {
		args := []string{"addmount", "-n", "films", "-s", "films", "-i", "nas", "-m", "/mnt/films", "-u", "alice", "-p", "pw"}
		Expect(c.execute(context.Background(), args)).To(Equal(0))
		Expect(c.execute(context.Background(), args)).To(Equal(1))

		Expect(stdout.String()).To(ContainSubstring("Cifs mount name must be unique"))
		Expect(stderr.String()).To(ContainSubstring("Hint:"))
	})
})

var _ = Describe("printError", func() {
	It("prints hints after the message", func() {
		var buf bytes.Buffer
		printError(&buf, errors.WithHint(errors.New("boom"), "try again"))
		Expect(buf.String()).To(ContainSubstring("boom"))
		Expect(buf.String()).To(ContainSubstring("Hint: try again"))
	})
})

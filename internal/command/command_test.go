package command

import (
	"reflect"
	"strings"
	"testing"
)

func TestEnvSetAndUnset(t *testing.T) {
	env := Env{}
	env.Set("PGPASSWORD", "secret")
	env.SetOrUnset("PGSSLCERT", "")
	env.SetOrUnset("PGSSLKEY", "/tmp/key.pem")

	if v, ok := env.Lookup("PGPASSWORD"); !ok || v != "secret" {
		t.Errorf("PGPASSWORD = %q, %v", v, ok)
	}
	if !env.IsUnset("PGSSLCERT") {
		t.Error("empty value should be an explicit unset")
	}
	if _, ok := env.Lookup("PGSSLCERT"); ok {
		t.Error("unset variable must not look set")
	}
	if env.IsUnset("MISSING") {
		t.Error("absent variable is not an explicit unset")
	}
}

func TestEnvApply(t *testing.T) {
	env := Env{}
	env.Set("PGSSLMODE", "require")
	env.Unset("PGSSLROOTCERT")

	base := []string{"PATH=/usr/bin", "PGSSLROOTCERT=/old/ca.pem", "PGSSLMODE=disable", "HOME=/root"}
	got := env.Apply(base)
	want := []string{"PATH=/usr/bin", "HOME=/root", "PGSSLMODE=require"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
}

func TestCommandChain(t *testing.T) {
	cmd := New(
		Process("docker", []string{"cp", "/tmp/a.bak", "mssql:/var/opt/mssql/backup/a.bak"}, nil),
		SQL("RESTORE DATABASE [a] FROM DISK = N'/var/opt/mssql/backup/a.bak' WITH REPLACE"),
	)

	if cmd.MainCommand() != "docker" || cmd.IsSQL() {
		t.Errorf("primary step = %+v", cmd.Primary())
	}
	post := cmd.Post()
	if post == nil {
		t.Fatal("expected a post command")
	}
	if !post.IsSQL() || !strings.HasPrefix(post.MainCommand(), "RESTORE DATABASE") {
		t.Errorf("post step = %+v", post.Primary())
	}
	if post.Post() != nil {
		t.Error("chain should end after two steps")
	}
}

func TestSingleStepHasNoPost(t *testing.T) {
	cmd := New(Process("pg_dump", []string{"--format=custom"}, nil))
	if cmd.Post() != nil {
		t.Error("single step command must not have a post command")
	}
	if (Command{}).MainCommand() != "" {
		t.Error("empty command has no main command")
	}
}

func TestThenDoesNotAlias(t *testing.T) {
	base := New(SQL("BACKUP DATABASE [a] TO DISK = N'/x'"))
	a := base.Then(Process("docker", []string{"cp"}, nil))
	b := base.Then(Process("podman", []string{"cp"}, nil))

	if a.Steps[1].MainCommand != "docker" || b.Steps[1].MainCommand != "podman" {
		t.Errorf("Then shared backing storage: %v / %v", a, b)
	}
	if len(base.Steps) != 1 {
		t.Error("Then must not modify the receiver")
	}
}

func TestCloneIsDeep(t *testing.T) {
	env := Env{}
	env.Set("MYSQL_PWD", "pw")
	orig := New(Process("mysqldump", []string{"--user=root"}, env))

	c := orig.Clone()
	c.Steps[0].Options[0] = "--user=other"
	c.Steps[0].Env.Set("MYSQL_PWD", "changed")

	if orig.Options()[0] != "--user=root" {
		t.Error("clone shares options")
	}
	if v, _ := orig.Env().Lookup("MYSQL_PWD"); v != "pw" {
		t.Error("clone shares env")
	}
}

func TestStringMasksSecrets(t *testing.T) {
	env := Env{}
	env.Set("PGPASSWORD", "hunter2")
	env.Set("PGSSLMODE", "prefer")
	env.Unset("PGSSLCERT")

	s := Process("pg_dump", []string{"--file=/tmp/my dump.sql"}, env).String()

	if strings.Contains(s, "hunter2") {
		t.Errorf("password leaked: %s", s)
	}
	if !strings.Contains(s, "PGPASSWORD=redacted") || !strings.Contains(s, "PGSSLMODE=prefer") {
		t.Errorf("unexpected env rendering: %s", s)
	}
	if strings.Contains(s, "PGSSLCERT") {
		t.Errorf("unset variables are not rendered: %s", s)
	}
	if !strings.Contains(s, `'--file=/tmp/my dump.sql'`) {
		t.Errorf("arguments must be shell quoted: %s", s)
	}
}

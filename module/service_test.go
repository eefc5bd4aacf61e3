package module

import (
	"context"
	"sync"
	"testing"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	. "github.com/franela/goblin"
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/store"
)

type sentMessage struct {
	msg       models.Message
	recipient string
}

// fakeSender records deliveries and fails for the recipients in fail.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (f *fakeSender) CreateUserMessage(_ context.Context, msg models.Message, recipients ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, r := range recipients {
		if f.fail[r] {
			errs = append(errs, errors.Errorf("mailbox of %s is unavailable", r))
			continue
		}
		f.sent = append(f.sent, sentMessage{msg: msg, recipient: r})
	}
	return errors.Combine(errs...)
}

func (f *fakeSender) to(recipient string) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, s := range f.sent {
		if s.recipient == recipient {
			out = append(out, s.msg)
		}
	}
	return out
}

func newTestService() (*Service, *fakeSender, store.Store) {
	st := store.NewMemory()
	sender := &fakeSender{fail: map[string]bool{}}
	logger := log.NewEntry(&log.Logger{Handler: discard.New(), Level: log.DebugLevel})
	return NewService(st, sender, WithLogger(logger), WithWorkers(2)), sender, st
}

func result(student, grade string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"student": student, "grade": grade})
	return b
}

func TestService(t *testing.T) {
	g := Goblin(t)
	ctx := context.Background()

	var (
		svc    *Service
		sender *fakeSender
		st     store.Store
	)

	g.Describe("Service", func() {
		g.BeforeEach(func() {
			svc, sender, st = newTestService()
		})

		g.Describe("CreateModule", func() {
			g.It("creates a module and refuses a duplicate", func() {
				msg, err := svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}})
				g.Assert(err).IsNil()
				g.Assert(msg).Equal("module created successfully")

				_, err = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101"})
				g.Assert(errors.Is(err, ErrConflict)).IsTrue()
				g.Assert(err.Error()).Equal("module already exists")
			})

			g.It("requires a module code", func() {
				_, err := svc.CreateModule(ctx, &models.Module{})
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()

				_, err = svc.CreateModule(ctx, nil)
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
			})

			g.It("stores empty rosters when none are given", func() {
				_, err := svc.CreateModule(ctx, &models.Module{ModuleCode: "CS102"})
				g.Assert(err).IsNil()

				doc, err := st.Get(ctx, ModulesCollection, "CS102")
				g.Assert(err).IsNil()
				var raw map[string]interface{}
				g.Assert(json.Unmarshal(doc.Data, &raw)).IsNil()
				g.Assert(raw["registeredStudents"]).Equal([]interface{}{})
				g.Assert(raw["admins"]).Equal([]interface{}{})
			})

			g.It("lets exactly one of two concurrent creates win", func() {
				var wg sync.WaitGroup
				errs := make([]error, 2)
				for i := range errs {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, errs[i] = svc.CreateModule(ctx, &models.Module{ModuleCode: "RACE"})
					}()
				}
				wg.Wait()
				conflicts := 0
				for _, err := range errs {
					if errors.Is(err, ErrConflict) {
						conflicts++
					} else {
						g.Assert(err).IsNil()
					}
				}
				g.Assert(conflicts).Equal(1)
			})
		})

		g.Describe("GetModuleByID", func() {
			g.It("returns the stored module", func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}})
				m, err := svc.GetModuleByID(ctx, "CS101")
				g.Assert(err).IsNil()
				g.Assert(m.ModuleCode).Equal("CS101")
				g.Assert(m.Admins).Equal([]string{"a1"})
				g.Assert(m.ResultAvailable).IsFalse()
			})

			g.It("reports a missing module", func() {
				_, err := svc.GetModuleByID(ctx, "NOPE")
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
				g.Assert(err.Error()).Equal("invalid module code")

				_, err = svc.GetModuleByID(ctx, "")
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
			})
		})

		g.Describe("GetModuleList and IsModuleExists", func() {
			g.It("lists every module code", func() {
				list, err := svc.GetModuleList(ctx)
				g.Assert(err).IsNil()
				g.Assert(len(list)).Equal(0)

				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "MA201"})
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101"})
				list, err = svc.GetModuleList(ctx)
				g.Assert(err).IsNil()
				g.Assert(list).Equal([]string{"CS101", "MA201"})
			})

			g.It("checks existence", func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101"})

				ok, err := svc.IsModuleExists(ctx, "CS101")
				g.Assert(err).IsNil()
				g.Assert(ok).IsTrue()

				ok, err = svc.IsModuleExists(ctx, "CS999")
				g.Assert(err).IsNil()
				g.Assert(ok).IsFalse()

				_, err = svc.IsModuleExists(ctx, "")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
			})
		})

		g.Describe("UpdateResults", func() {
			g.BeforeEach(func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}})
			})

			g.It("lets an admin write results", func() {
				_, err := svc.UpdateResults(ctx, ResultUpdate{
					ModuleCode: "CS101",
					UserID:     "a1",
					Results:    []json.RawMessage{result("s1", "A")},
				})
				g.Assert(err).IsNil()

				m, _ := svc.GetModuleByID(ctx, "CS101")
				g.Assert(m.ResultAvailable).IsTrue()
				g.Assert(m.LastEditedBy).Equal("a1")
				g.Assert(len(m.Results)).Equal(1)
			})

			g.It("keeps results released when overwritten with an empty list", func() {
				_, _ = svc.UpdateResults(ctx, ResultUpdate{ModuleCode: "CS101", UserID: "a1", Results: []json.RawMessage{result("s1", "A")}})
				_, err := svc.UpdateResults(ctx, ResultUpdate{ModuleCode: "CS101", UserID: "a1"})
				g.Assert(err).IsNil()

				m, _ := svc.GetModuleByID(ctx, "CS101")
				g.Assert(m.ResultAvailable).IsTrue()
				g.Assert(len(m.Results)).Equal(0)
			})

			g.It("refuses non admins and leaves the module untouched", func() {
				_, err := svc.UpdateResults(ctx, ResultUpdate{
					ModuleCode: "CS101",
					UserID:     "s1",
					Results:    []json.RawMessage{result("s1", "A")},
				})
				g.Assert(errors.Is(err, ErrPermission)).IsTrue()

				m, _ := svc.GetModuleByID(ctx, "CS101")
				g.Assert(m.ResultAvailable).IsFalse()
				g.Assert(len(m.Results)).Equal(0)
				g.Assert(m.LastEditedBy).Equal("")
			})

			g.It("validates input and module existence", func() {
				_, err := svc.UpdateResults(ctx, ResultUpdate{UserID: "a1"})
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()

				_, err = svc.UpdateResults(ctx, ResultUpdate{ModuleCode: "CS999", UserID: "a1"})
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
				g.Assert(err.Error()).Equal("no such module")
			})
		})

		g.Describe("RegisterToModule", func() {
			g.BeforeEach(func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}})
			})

			g.It("registers a student once", func() {
				ok, err := svc.RegisterToModule(ctx, "s1", "CS101")
				g.Assert(err).IsNil()
				g.Assert(ok).IsTrue()

				_, err = svc.RegisterToModule(ctx, "s1", "CS101")
				g.Assert(errors.Is(err, ErrConflict)).IsTrue()

				m, _ := svc.GetModuleByID(ctx, "CS101")
				g.Assert(m.RegisteredStudents).Equal([]string{"s1"})
			})

			g.It("validates input and module existence", func() {
				_, err := svc.RegisterToModule(ctx, "", "CS101")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()

				_, err = svc.RegisterToModule(ctx, "s1", "CS999")
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
			})

			g.It("does not lose concurrent registrations", func() {
				students := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
				var wg sync.WaitGroup
				errs := make([]error, len(students))
				for i, s := range students {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, errs[i] = svc.RegisterToModule(ctx, s, "CS101")
					}()
				}
				wg.Wait()
				for _, err := range errs {
					g.Assert(err).IsNil()
				}

				m, _ := svc.GetModuleByID(ctx, "CS101")
				g.Assert(len(m.RegisteredStudents)).Equal(len(students))
			})
		})

		g.Describe("GetRegisteredModules and GetAdminModules", func() {
			g.It("returns the modules matching the user's role", func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}})
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS102", Admins: []string{"a1", "a2"}})
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "MA201", Admins: []string{"a2"}})
				_, _ = svc.RegisterToModule(ctx, "s1", "CS102")
				_, _ = svc.RegisterToModule(ctx, "s1", "MA201")

				reg, err := svc.GetRegisteredModules(ctx, "s1")
				g.Assert(err).IsNil()
				g.Assert(reg).Equal([]string{"CS102", "MA201"})

				adm, err := svc.GetAdminModules(ctx, "a1")
				g.Assert(err).IsNil()
				g.Assert(adm).Equal([]string{"CS101", "CS102"})

				none, err := svc.GetAdminModules(ctx, "s1")
				g.Assert(err).IsNil()
				g.Assert(len(none)).Equal(0)
			})
		})

		g.Describe("RequestReCorrection", func() {
			g.BeforeEach(func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1", "a2"}})
				_, _ = svc.RegisterToModule(ctx, "s1", "CS101")
			})

			g.It("requires released results", func() {
				_, err := svc.RequestReCorrection(ctx, "s1", "CS101")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
				g.Assert(len(sender.to("a1"))).Equal(0)
			})

			g.It("requires a registered student", func() {
				_, _ = svc.UpdateResults(ctx, ResultUpdate{ModuleCode: "CS101", UserID: "a1"})
				_, err := svc.RequestReCorrection(ctx, "s2", "CS101")
				g.Assert(errors.Is(err, ErrPermission)).IsTrue()
			})

			g.It("records the request once and notifies each admin", func() {
				_, _ = svc.UpdateResults(ctx, ResultUpdate{ModuleCode: "CS101", UserID: "a1"})

				_, err := svc.RequestReCorrection(ctx, "s1", "CS101")
				g.Assert(err).IsNil()

				for _, admin := range []string{"a1", "a2"} {
					msgs := sender.to(admin)
					g.Assert(len(msgs)).Equal(1)
					g.Assert(msgs[0].Type).Equal(models.MessageTypeReCorrection)
					g.Assert(msgs[0].Author).Equal(models.SystemAuthor)
					g.Assert(msgs[0].Content).Equal("s1 is requesting re-correction for module CS101")
				}

				_, err = svc.RequestReCorrection(ctx, "s1", "CS101")
				g.Assert(errors.Is(err, ErrConflict)).IsTrue()

				m, _ := svc.GetModuleByID(ctx, "CS101")
				g.Assert(m.ReCorrectionRequested).Equal([]string{"s1"})
			})

			g.It("succeeds even when notifying an admin fails", func() {
				sender.fail["a2"] = true
				_, _ = svc.UpdateResults(ctx, ResultUpdate{ModuleCode: "CS101", UserID: "a1"})

				_, err := svc.RequestReCorrection(ctx, "s1", "CS101")
				g.Assert(err).IsNil()
				g.Assert(len(sender.to("a1"))).Equal(1)
			})

			g.It("validates input and module existence", func() {
				_, err := svc.RequestReCorrection(ctx, "", "CS101")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()

				_, err = svc.RequestReCorrection(ctx, "s1", "CS999")
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
			})
		})

		g.Describe("CreateModuleMessage", func() {
			g.BeforeEach(func() {
				_, _ = svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}})
				for _, s := range []string{"s1", "s2", "s3"} {
					_, _ = svc.RegisterToModule(ctx, s, "CS101")
				}
			})

			g.It("delivers to every registered student", func() {
				report, err := svc.CreateModuleMessage(ctx, "CS101", "a1", "exam moved to room 4")
				g.Assert(err).IsNil()
				g.Assert(len(report.Deliveries)).Equal(3)
				g.Assert(len(report.Failed())).Equal(0)

				for _, s := range []string{"s1", "s2", "s3"} {
					msgs := sender.to(s)
					g.Assert(len(msgs)).Equal(1)
					g.Assert(msgs[0].Author).Equal("a1")
					g.Assert(msgs[0].Type).Equal(models.MessageTypeModule)
				}
			})

			g.It("keeps going when a delivery fails", func() {
				sender.fail["s2"] = true
				report, err := svc.CreateModuleMessage(ctx, "CS101", "a1", "hello")
				g.Assert(err).IsNil()

				failed := report.Failed()
				g.Assert(len(failed)).Equal(1)
				g.Assert(failed[0].Recipient).Equal("s2")
				g.Assert(failed[0].Error != "").IsTrue()
				g.Assert(report.Deliveries[0]).Equal(Delivery{Recipient: "s1", Delivered: true})
				g.Assert(len(sender.to("s3"))).Equal(1)
			})

			g.It("only allows admins", func() {
				_, err := svc.CreateModuleMessage(ctx, "CS101", "s1", "hello")
				g.Assert(errors.Is(err, ErrPermission)).IsTrue()
				g.Assert(len(sender.to("s2"))).Equal(0)
			})

			g.It("validates input and module existence", func() {
				_, err := svc.CreateModuleMessage(ctx, "CS101", "a1", "")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()

				_, err = svc.CreateModuleMessage(ctx, "CS999", "a1", "hello")
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
			})
		})

		g.Describe("File records", func() {
			g.It("records uploads in order and keeps duplicates", func() {
				_, err := svc.RecordUpload(ctx, "CS101", "notes.pdf")
				g.Assert(err).IsNil()
				_, err = svc.RecordUpload(ctx, "CS101", "notes.pdf")
				g.Assert(err).IsNil()
				_, err = svc.RecordUpload(ctx, "CS101", "slides.pdf")
				g.Assert(err).IsNil()

				files, err := svc.GetFileList(ctx, "CS101")
				g.Assert(err).IsNil()
				g.Assert(files).Equal([]string{"notes.pdf", "notes.pdf", "slides.pdf"})
			})

			g.It("does not require the module to exist", func() {
				ok, _ := svc.IsModuleExists(ctx, "GHOST")
				g.Assert(ok).IsFalse()
				_, err := svc.RecordUpload(ctx, "GHOST", "a.txt")
				g.Assert(err).IsNil()
			})

			g.It("returns an empty list for a module without uploads", func() {
				files, err := svc.GetFileList(ctx, "CS101")
				g.Assert(err).IsNil()
				g.Assert(files).Equal([]string{})
			})

			g.It("removes one occurrence of a file", func() {
				_, _ = svc.RecordUpload(ctx, "CS101", "notes.pdf")
				_, _ = svc.RecordUpload(ctx, "CS101", "slides.pdf")
				_, _ = svc.RecordUpload(ctx, "CS101", "notes.pdf")

				_, err := svc.DeleteFileRecord(ctx, "CS101", "notes.pdf")
				g.Assert(err).IsNil()

				files, _ := svc.GetFileList(ctx, "CS101")
				g.Assert(files).Equal([]string{"slides.pdf", "notes.pdf"})
			})

			g.It("ignores a name that is not recorded", func() {
				_, _ = svc.RecordUpload(ctx, "CS101", "notes.pdf")
				_, err := svc.DeleteFileRecord(ctx, "CS101", "other.pdf")
				g.Assert(err).IsNil()

				files, _ := svc.GetFileList(ctx, "CS101")
				g.Assert(files).Equal([]string{"notes.pdf"})
			})

			g.It("fails when the module has no record", func() {
				_, err := svc.DeleteFileRecord(ctx, "CS101", "notes.pdf")
				g.Assert(errors.Is(err, ErrNotFound)).IsTrue()
			})

			g.It("validates input", func() {
				_, err := svc.RecordUpload(ctx, "", "a.txt")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
				_, err = svc.RecordUpload(ctx, "CS101", "")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
				_, err = svc.DeleteFileRecord(ctx, "CS101", "")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
				_, err = svc.GetFileList(ctx, "")
				g.Assert(errors.Is(err, ErrValidation)).IsTrue()
			})
		})
	})
}

func TestService_Scenario(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newTestService()

	if _, err := svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101", Admins: []string{"a1"}, RegisteredStudents: []string{}}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ok, err := svc.RegisterToModule(ctx, "s1", "CS101"); err != nil || !ok {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.UpdateResults(ctx, ResultUpdate{
		ModuleCode: "CS101",
		UserID:     "a1",
		Results:    []json.RawMessage{result("s1", "A")},
	}); err != nil {
		t.Fatalf("update results failed: %v", err)
	}

	m, err := svc.GetModuleByID(ctx, "CS101")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !m.ResultAvailable {
		t.Fatal("expected results to be released")
	}
	if len(m.RegisteredStudents) != 1 || m.RegisteredStudents[0] != "s1" {
		t.Fatalf("unexpected roster %v", m.RegisteredStudents)
	}

	if _, err := svc.RequestReCorrection(ctx, "s1", "CS101"); err != nil {
		t.Fatalf("re-correction request failed: %v", err)
	}
	if n := len(sender.to("a1")); n != 1 {
		t.Fatalf("expected admin to receive 1 message, got %d", n)
	}
	if _, err := svc.RequestReCorrection(ctx, "s1", "CS101"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on repeated request, got %v", err)
	}
}

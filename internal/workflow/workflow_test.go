package workflow_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"ortholine/internal/config"
	"ortholine/internal/domain"
	"ortholine/internal/engine/auth"
	"ortholine/internal/workflow"
)

var _ = Describe("Workflow", func() {
	var (
		perms *auth.Table
		at    = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		perms = auth.New(config.Default())
	})

	Describe("Next", func() {
		It("should follow the transition table", func() {
			legal := map[domain.Status]map[domain.Action]domain.Status{
				domain.StatusDraft:                {domain.ActionSendToMedical: domain.StatusMedicalReview},
				domain.StatusRegistrationPending:  {domain.ActionSendToMedical: domain.StatusMedicalReview},
				domain.StatusMedicalReview:        {domain.ActionSendToChief: domain.StatusChiefApproval},
				domain.StatusChiefApproval:        {domain.ActionApprove: domain.StatusDispatcherAssignment, domain.ActionReject: domain.StatusRejected, domain.ActionReturnForRevision: domain.StatusReturnedForRevision},
				domain.StatusDispatcherAssignment: {domain.ActionAssignToProduction: domain.StatusInProduction},
				domain.StatusInProduction:         {domain.ActionMarkReady: domain.StatusReadyForFitting},
				domain.StatusReadyForFitting:      {domain.ActionComplete: domain.StatusCompleted},
			}
			for _, s := range domain.Statuses {
				for _, a := range domain.Actions {
					next, ok := workflow.Next(s, a)
					want, isLegal := legal[s][a]
					Expect(ok).To(Equal(isLegal), "%s from %s", a, s)
					Expect(next).To(Equal(want), "%s from %s", a, s)
				}
			}
		})

		It("should leave no exit from terminal or returned orders", func() {
			for _, s := range []domain.Status{domain.StatusCompleted, domain.StatusRejected, domain.StatusReturnedForRevision} {
				for _, a := range domain.Actions {
					_, ok := workflow.Next(s, a)
					Expect(ok).To(BeFalse(), "%s from %s", a, s)
				}
			}
		})
	})

	Describe("Validate", func() {
		Context("when several checks fail at once", func() {
			It("should report permission before transition", func() {
				_, err := workflow.Validate(perms, domain.StatusCompleted, workflow.Command{
					Actor:  domain.Actor{ID: "u", Role: domain.RoleWorkshop},
					Action: domain.ActionReject,
				})
				Expect(err).To(MatchError(domain.ErrPermissionDenied))
			})

			It("should report transition before comment", func() {
				_, err := workflow.Validate(perms, domain.StatusCompleted, workflow.Command{
					Actor:  domain.Actor{ID: "u", Role: domain.RoleChiefDoctor},
					Action: domain.ActionReject,
				})
				Expect(err).To(MatchError(domain.ErrIllegalTransition))
			})
		})

		It("should treat unknown actions and roles as permission errors", func() {
			_, err := workflow.Validate(perms, domain.StatusDraft, workflow.Command{Actor: domain.Actor{Role: domain.RoleRegistration}, Action: "teleport"})
			Expect(err).To(MatchError(domain.ErrPermissionDenied))
			_, err = workflow.Validate(perms, domain.StatusDraft, workflow.Command{Actor: domain.Actor{Role: "janitor"}, Action: domain.ActionSendToMedical})
			Expect(err).To(MatchError(domain.ErrPermissionDenied))
		})

		It("should require a non-blank comment for reject and return", func() {
			for _, a := range []domain.Action{domain.ActionReject, domain.ActionReturnForRevision} {
				_, err := workflow.Validate(perms, domain.StatusChiefApproval, workflow.Command{
					Actor:   domain.Actor{Role: domain.RoleChiefDoctor},
					Action:  a,
					Comment: " \t",
				})
				Expect(err).To(Equal(domain.MissingCommentError{Action: a}))
			}
		})
	})

	Describe("Apply", func() {
		It("should produce the next order and a chained step", func() {
			o := domain.Order{ID: "o-1", WorkflowStatus: domain.StatusChiefApproval, HistorySeq: 2}
			next, step, err := workflow.Apply(perms, o, workflow.Command{
				Actor:        domain.Actor{ID: "chief-1", Role: domain.RoleChiefDoctor},
				Action:       domain.ActionReturnForRevision,
				Comment:      "  add measurements ",
				At:           at,
				ToDepartment: "registration",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(o.WorkflowStatus).To(Equal(domain.StatusChiefApproval))
			Expect(next.WorkflowStatus).To(Equal(domain.StatusReturnedForRevision))
			Expect(next.HistorySeq).To(Equal(3))
			Expect(step).To(Equal(domain.WorkflowStep{
				OrderID:         "o-1",
				Seq:             3,
				FromDepartment:  "chief_doctor",
				ToDepartment:    "registration",
				Action:          domain.ActionReturnForRevision,
				FromStatus:      domain.StatusChiefApproval,
				ResultingStatus: domain.StatusReturnedForRevision,
				PerformedBy:     "chief-1",
				PerformedAt:     at,
				Comments:        "add measurements",
			}))
		})

		It("should return the order untouched on failure", func() {
			o := domain.Order{ID: "o-1", WorkflowStatus: domain.StatusMedicalReview, HistorySeq: 1}
			next, _, err := workflow.Apply(perms, o, workflow.Command{Actor: domain.Actor{Role: domain.RoleRegistration}, Action: domain.ActionSendToChief})
			Expect(err).To(MatchError(domain.ErrPermissionDenied))
			Expect(next).To(Equal(o))
		})
	})

	Describe("AvailableActions", func() {
		It("should intersect role rights with legal transitions", func() {
			Expect(workflow.AvailableActions(perms, domain.RoleChiefDoctor, domain.StatusChiefApproval)).To(Equal(
				[]domain.Action{domain.ActionApprove, domain.ActionReject, domain.ActionReturnForRevision}))
			Expect(workflow.AvailableActions(perms, domain.RoleMedical, domain.StatusReadyForFitting)).To(Equal(
				[]domain.Action{domain.ActionComplete}))
			Expect(workflow.AvailableActions(perms, domain.RoleWorkshop, domain.StatusChiefApproval)).To(BeEmpty())
		})
	})

	Describe("UrgencyPolicy", func() {
		var policy workflow.UrgencyPolicy
		created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		BeforeEach(func() {
			cfg := config.Default()
			policy = workflow.NewUrgencyPolicy(cfg.Urgency.ThresholdDays, cfg.Urgency.PendingStatuses)
		})

		It("should flip strictly after seven days", func() {
			week := created.Add(7 * 24 * time.Hour)
			Expect(policy.Urgent(created, domain.StatusMedicalReview, week)).To(BeFalse())
			Expect(policy.Urgent(created, domain.StatusMedicalReview, week.Add(time.Nanosecond))).To(BeTrue())
		})

		It("should never flag non-pending statuses", func() {
			later := created.Add(30 * 24 * time.Hour)
			for _, s := range []domain.Status{domain.StatusDraft, domain.StatusInProduction, domain.StatusCompleted, domain.StatusRejected, domain.StatusReturnedForRevision} {
				Expect(policy.Urgent(created, s, later)).To(BeFalse(), string(s))
			}
			Expect(policy.Urgent(created, domain.StatusChiefApproval, later)).To(BeTrue())
		})
	})
})

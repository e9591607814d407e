package form

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kalambet/jobportal/internal/apperr"
	"github.com/kalambet/jobportal/internal/auth"
	"github.com/kalambet/jobportal/internal/filter"
	"github.com/kalambet/jobportal/internal/nav"
	"github.com/kalambet/jobportal/internal/notify"
)

// Name identifies a form of the portal.
type Name string

const (
	Login      Name = "login"
	Register   Name = "register"
	AdminLogin Name = "admin_login"
	SalesLogin Name = "sales_login"
	PostJob    Name = "post_job"
	EditJob    Name = "edit_job"
	Checkout   Name = "checkout"
	Apply      Name = "apply"
	Profile    Name = "profile"
)

// Pace selects the simulated latency of a form.
type Pace int

const (
	PaceStandard Pace = iota
	PaceSlow
	PaceImmediate
)

// Result is what a completed submission produced.
type Result struct {
	Notification notify.Notification `json:"notification"`
	Destination  nav.Destination     `json:"destination,omitempty"`
	NavState     map[string]any      `json:"nav_state,omitempty"`
	Token        string              `json:"token,omitempty"`
	Err          *apperr.Error       `json:"-"`
}

// RecordUpdater applies edits to stored collections.
type RecordUpdater interface {
	Update(ctx context.Context, collection, id string, fields map[string]any) (filter.Record, error)
}

// Deps are the collaborators a completing form may call.
type Deps struct {
	Checkers map[auth.Role]auth.CredentialChecker
	Sessions *auth.Sessions
	Records  RecordUpdater
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Definition describes one form: its fields, rules, latency and what happens
// when a submission completes.
type Definition struct {
	Name       Name
	Title      string
	Initial    State
	Secret     []string // fields never echoed back
	Attachment string   // field that holds an uploaded resume, if any
	Format     map[string]func(string) string
	Validate   Validator
	Pace       Pace
	Failure    func(*apperr.Error) notify.Notification
	Complete   func(ctx context.Context, s State, d Deps) Result
}

// IsSecret reports whether field must be masked in output.
func (d *Definition) IsSecret(field string) bool {
	return slices.Contains(d.Secret, field)
}

const msgPasswordMismatch = "passwords do not match"

var definitions = map[Name]*Definition{
	Login: {
		Name:    Login,
		Title:   "Sign In",
		Initial: State{"email": "", "password": "", "userType": "jobseeker"},
		Secret:  []string{"password"},
		Validate: Rules([]Rule{
			{Field: "email", Tag: "required"},
			{Field: "password", Tag: "required"},
			{Field: "userType", Tag: "required,oneof=jobseeker company", Label: "account type"},
		}),
		Failure: func(*apperr.Error) notify.Notification {
			return notify.Alert("Login Failed", "Please enter valid credentials.")
		},
		Complete: completeLogin,
	},
	Register: {
		Name:  Register,
		Title: "Create Account",
		Initial: State{
			"userType": "jobseeker", "fullName": "", "email": "", "password": "", "confirmPassword": "",
			"phone": "", "companyName": "", "companyDescription": "", "website": "", "skills": "", "experience": "",
		},
		Secret: []string{"password", "confirmPassword"},
		Validate: Rules([]Rule{
			{Field: "fullName", Tag: "required", Label: "full name"},
			{Field: "email", Tag: "required,email"},
			{Field: "password", Tag: "required"},
			{Field: "confirmPassword", Tag: "required", Label: "password confirmation"},
			{Field: "userType", Tag: "required,oneof=jobseeker company", Label: "account type"},
		},
			FieldsMatch("password", "confirmPassword", msgPasswordMismatch),
			RequiredWhen("userType", "company", "companyName", "companyDescription"),
		),
		Failure: func(e *apperr.Error) notify.Notification {
			if e.Message == msgPasswordMismatch {
				return notify.Alert("Password Mismatch", "Passwords do not match. Please try again.")
			}
			return notify.Alert("Registration Failed", "Please fill in all required fields.")
		},
		Complete: func(_ context.Context, s State, _ Deps) Result {
			n := notify.Info("Registration Successful", "Welcome to JobPortal! Please sign in to continue.")
			if s.String("userType") == string(auth.RoleCompany) {
				n = notify.Info("Registration Submitted",
					"Your company registration has been submitted for admin verification. You'll receive an email once approved.")
			}
			return Result{Notification: n, Destination: nav.Login}
		},
	},
	AdminLogin: operatorLogin(AdminLogin, auth.RoleAdmin, "Admin", "admin", nav.AdminDashboard),
	SalesLogin: operatorLogin(SalesLogin, auth.RoleSales, "Sales", "sales", nav.SalesDashboard),
	PostJob: {
		Name:  PostJob,
		Title: "Post a New Job",
		Initial: State{
			"title": "", "department": "", "location": "", "jobType": "", "workArrangement": "",
			"experienceLevel": "", "salaryMin": "", "salaryMax": "", "currency": "", "description": "",
			"responsibilities": "", "requirements": "", "skills": "", "benefits": "",
			"applicationDeadline": "", "isUrgent": false, "isRemote": false,
		},
		Validate: Rules([]Rule{
			{Field: "title", Tag: "required", Label: "job title"},
			{Field: "location", Tag: "required"},
			{Field: "description", Tag: "required"},
			{Field: "responsibilities", Tag: "required"},
			{Field: "requirements", Tag: "required"},
			{Field: "salaryMin", Tag: "omitempty,numeric", Label: "minimum salary"},
			{Field: "salaryMax", Tag: "omitempty,numeric", Label: "maximum salary"},
		}),
		Failure: func(*apperr.Error) notify.Notification {
			return notify.Alert("Missing Information", "Please fill in all required fields.")
		},
		Complete: func(context.Context, State, Deps) Result {
			return Result{
				Notification: notify.Info("Job Posted Successfully", "Your job posting has been published and is now live on the platform."),
				Destination:  nav.CompanyDashboard,
			}
		},
	},
	EditJob: {
		Name:    EditJob,
		Title:   "Edit Job Posting",
		Initial: State{"id": "", "title": "", "location": "", "type": "", "salary": "", "description": "", "requirements": "", "skills": ""},
		Pace:    PaceImmediate,
		Validate: Rules([]Rule{
			{Field: "id", Tag: "required", Label: "job id"},
			{Field: "title", Tag: "required", Label: "job title"},
			{Field: "location", Tag: "required"},
		}),
		Failure: func(*apperr.Error) notify.Notification {
			return notify.Alert("Update Failed", "Please fill in all required fields.")
		},
		Complete: completeEditJob,
	},
	Checkout: {
		Name:  Checkout,
		Title: "Complete Your Purchase",
		Initial: State{
			"plan": "Basic", "price": "$9.99", "period": "/month",
			"cardNumber": "", "expiryDate": "", "cvv": "", "cardName": "", "email": "",
			"billingAddress": "", "city": "", "zipCode": "", "country": "",
		},
		Secret: []string{"cardNumber", "cvv"},
		Format: map[string]func(string) string{"cardNumber": FormatCardNumber, "expiryDate": FormatExpiry},
		Pace:   PaceSlow,
		Validate: Rules([]Rule{
			{Field: "email", Tag: "required,email"},
			{Field: "cardNumber", Tag: "required", Label: "card number"},
			{Field: "expiryDate", Tag: "required", Label: "expiry date"},
			{Field: "cvv", Tag: "required,numeric", Label: "CVV"},
			{Field: "cardName", Tag: "required", Label: "name on card"},
			{Field: "billingAddress", Tag: "required", Label: "billing address"},
			{Field: "city", Tag: "required"},
			{Field: "zipCode", Tag: "required", Label: "ZIP code"},
			{Field: "country", Tag: "required"},
		}),
		Failure: func(*apperr.Error) notify.Notification {
			return notify.Alert("Payment Failed", "Please complete all payment details.")
		},
		Complete: func(_ context.Context, s State, _ Deps) Result {
			plan := s.String("plan")
			if plan == "" {
				plan = "Basic"
			}
			return Result{
				Notification: notify.Info("Payment Successful!", fmt.Sprintf("Welcome to %s plan! Your subscription is now active.", plan)),
				Destination:  nav.JobSeekerDashboard,
			}
		},
	},
	Apply: {
		Name:       Apply,
		Title:      "Apply for Job",
		Initial:    State{"jobTitle": "", "companyName": "", "coverLetter": "", "resume": nil},
		Attachment: "resume",
		Pace:       PaceSlow,
		Validate: Rules([]Rule{
			{Field: "jobTitle", Tag: "required", Label: "job title"},
			{Field: "companyName", Tag: "required", Label: "company name"},
		},
			Present("resume", "resume is required"),
		),
		Failure: func(e *apperr.Error) notify.Notification {
			if e.Field == "resume" {
				return notify.Alert("Resume Required", "Please upload your resume to apply.")
			}
			return notify.Alert("Application Failed", e.Message)
		},
		Complete: func(_ context.Context, s State, _ Deps) Result {
			return Result{Notification: notify.Info("Application Submitted",
				fmt.Sprintf("Your application for %s at %s has been submitted successfully.", s.String("jobTitle"), s.String("companyName")))}
		},
	},
	Profile: {
		Name:  Profile,
		Title: "Edit Profile",
		Initial: State{
			"name": "", "email": "", "phone": "", "location": "",
			"title": "", "experience": "", "skills": "", "bio": "",
		},
		Validate: Rules([]Rule{
			{Field: "name", Tag: "required", Label: "full name"},
			{Field: "email", Tag: "required,email"},
		}),
		Failure: func(*apperr.Error) notify.Notification {
			return notify.Alert("Update Failed", "Please fill in all required fields.")
		},
		Complete: func(context.Context, State, Deps) Result {
			return Result{
				Notification: notify.Info("Profile Updated", "Your profile has been successfully updated."),
				Destination:  nav.Profile,
			}
		},
	},
}

// Lookup returns the definition of the form called name.
func Lookup(name string) (*Definition, bool) {
	d, ok := definitions[Name(strings.ToLower(strings.TrimSpace(name)))]
	return d, ok
}

// Names lists every form, sorted.
func Names() []Name {
	out := make([]Name, 0, len(definitions))
	for n := range definitions {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func completeLogin(_ context.Context, s State, d Deps) Result {
	role := auth.Role(s.String("userType"))
	res := Result{Notification: notify.Info("Login Successful", "Welcome back! Redirecting to your dashboard...")}
	switch role {
	case auth.RoleJobSeeker:
		res.Destination = nav.JobSeekerDashboard
	case auth.RoleCompany:
		res.Destination = nav.CompanyDashboard
	default:
		res.Destination = nav.Home
	}
	if d.Sessions != nil {
		res.Token, _ = d.Sessions.Issue(auth.NormalizeEmail(s.String("email")), role)
	}
	return res
}

func operatorLogin(name Name, role auth.Role, title, noun string, dest nav.Destination) *Definition {
	denied := notify.Alert("Access Denied", fmt.Sprintf("Invalid %s credentials.", noun))
	return &Definition{
		Name:    name,
		Title:   title + " Login",
		Initial: State{"email": "", "password": ""},
		Secret:  []string{"password"},
		Validate: Rules([]Rule{
			{Field: "email", Tag: "required,email"},
			{Field: "password", Tag: "required"},
		}),
		Failure: func(*apperr.Error) notify.Notification { return denied },
		Complete: func(ctx context.Context, s State, d Deps) Result {
			checker := d.Checkers[role]
			if checker == nil {
				return Result{Notification: denied, Err: apperr.Auth("no " + noun + " accounts are configured")}
			}
			email := auth.NormalizeEmail(s.String("email"))
			ok, err := checker.Check(ctx, email, s.String("password"))
			if err != nil {
				d.logger().Error("credential check failed", "form", name, "error", err)
				return Result{
					Notification: notify.Alert("Login Error", "Please try again later."),
					Err:          apperr.Wrap(apperr.KindInternal, "credential check failed", err),
				}
			}
			if !ok {
				return Result{Notification: denied, Err: apperr.Auth(fmt.Sprintf("invalid %s credentials", noun))}
			}
			res := Result{
				Notification: notify.Info(title+" Login Successful", fmt.Sprintf("Welcome to %s dashboard!", noun)),
				Destination:  dest,
			}
			if d.Sessions != nil {
				res.Token, _ = d.Sessions.Issue(email, role)
			}
			return res
		},
	}
}

func completeEditJob(ctx context.Context, s State, d Deps) Result {
	if d.Records == nil {
		return Result{
			Notification: notify.Alert("Update Failed", "Job postings are unavailable."),
			Err:          apperr.Internal("no record store configured"),
		}
	}
	fields := map[string]any{}
	for _, f := range []string{"title", "location", "type", "salary", "description", "requirements"} {
		if v, ok := s[f]; ok {
			fields[f] = v
		}
	}
	if raw, ok := s["skills"].(string); ok {
		fields["skills"] = SplitSkills(raw)
	}
	id := fmt.Sprint(s["id"])
	if _, err := d.Records.Update(ctx, "postings", id, fields); err != nil {
		e, ok := apperr.As(err)
		if !ok {
			e = apperr.Wrap(apperr.KindInternal, "updating job posting", err)
		}
		return Result{Notification: notify.Alert("Update Failed", "Job posting could not be updated."), Err: e}
	}
	return Result{Notification: notify.Info("Job Updated", "Job posting has been successfully updated.")}
}

// SplitSkills turns "React, TypeScript" into its trimmed, non-empty parts.
func SplitSkills(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Command labctl is the terminal client for the lab equipment reservation
// store. It authenticates against the store, renders day schedules computed
// on the lab clock, and submits reservation and cancellation requests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/lab-scheduler/internal/application"
	"github.com/example/lab-scheduler/internal/config"
	"github.com/example/lab-scheduler/internal/gateway"
	"github.com/example/lab-scheduler/internal/interval"
	"github.com/example/lab-scheduler/internal/labclock"
	"github.com/example/lab-scheduler/internal/session"
	"github.com/example/lab-scheduler/internal/slots"
)

const wallTimeLayout = "2006-01-02 15:04"

func main() {
	logger := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if strings.EqualFold(os.Getenv("LABSCHED_LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	if len(args) == 0 {
		usage()
		return fmt.Errorf("a command is required")
	}
	command := args[0]
	switch command {
	case "equipment", "categories", "slots", "reserve", "cancel", "reservations", "analytics":
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load(os.Getenv("LABSCHED_CONFIG"))
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.logout(ctx)

	switch command {
	case "equipment":
		return app.equipment(ctx, args[1:])
	case "categories":
		return app.categories(ctx)
	case "slots":
		return app.slots(ctx, args[1:])
	case "reserve":
		return app.reserve(ctx, args[1:])
	case "cancel":
		return app.cancel(ctx, args[1:])
	case "reservations":
		return app.reservations(ctx, args[1:])
	default:
		return app.analytics(ctx, args[1:])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: labctl <command> [flags]

commands:
  equipment     list catalog entries
  categories    list equipment categories
  slots         show the day's slot grid for one equipment
  reserve       create a reservation
  cancel        cancel a reservation
  reservations  list reservations
  analytics     usage report (lab managers only)`)
}

type app struct {
	clock        *labclock.Normalizer
	session      *session.Session
	manager      *session.Manager
	reservationSvc *application.ReservationService
	equipmentSvc *application.EquipmentService
	analyticsSvc *application.AnalyticsService
	logger       *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	username := os.Getenv("LABSCHED_USERNAME")
	password := os.Getenv("LABSCHED_PASSWORD")
	if username == "" || password == "" {
		return nil, fmt.Errorf("LABSCHED_USERNAME and LABSCHED_PASSWORD must be set")
	}

	authClient, err := gateway.NewClient(cfg.Gateway.BaseURL, gateway.Options{
		HTTPClient:        &http.Client{Timeout: cfg.Gateway.Timeout.Std()},
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(authClient, time.Now, logger)
	sess, err := manager.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	client, err := gateway.NewClient(cfg.Gateway.BaseURL, gateway.Options{
		HTTPClient:        &http.Client{Timeout: cfg.Gateway.Timeout.Std()},
		Tokens:            sess,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	clock, err := labclock.NewNormalizer(cfg.Lab.Timezone)
	if err != nil {
		return nil, err
	}
	window := slots.Window{
		StartHour:  cfg.Lab.OpenHour,
		EndHour:    cfg.Lab.CloseHour,
		SlotLength: cfg.Lab.SlotLength.Std(),
	}
	generator, err := slots.NewGenerator(clock, window)
	if err != nil {
		return nil, err
	}

	operating := time.Duration(cfg.Lab.CloseHour-cfg.Lab.OpenHour) * time.Hour
	return &app{
		clock:        clock,
		session:      sess,
		manager:      manager,
		reservationSvc: application.NewReservationService(client, generator, cfg.Snapshot.TTL.Std(), time.Now, logger),
		equipmentSvc: application.NewEquipmentService(client, logger),
		analyticsSvc: application.NewAnalyticsService(client, clock, operating, logger),
		logger:       logger,
	}, nil
}

func (a *app) logout(ctx context.Context) {
	a.manager.Logout(ctx, a.session)
}

func (a *app) principal() application.Principal {
	user := a.session.User()
	return application.Principal{
		UserID:            user.ID,
		UserName:          user.Username,
		Privileged:        a.session.Privileged(),
		TrainingCompleted: user.TrainingCompleted,
	}
}

func (a *app) equipment(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("equipment", flag.ContinueOnError)
	category := fs.String("category", "", "filter by category ID")
	status := fs.String("status", "", "filter by status")
	location := fs.String("location", "", "filter by location")
	search := fs.String("search", "", "search name, description and location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := a.equipmentSvc.List(ctx, application.EquipmentFilter{
		Category: *category,
		Status:   application.EquipmentStatus(*status),
		Location: *location,
		Search:   *search,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tLOCATION\tSTATUS\tMAX HOURS\tTRAINING")
	for _, e := range list {
		training := "-"
		if e.RequiresTraining {
			training = "required"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Name, e.CategoryName, e.Location, e.Status, e.MaxReservationHours, training)
	}
	return w.Flush()
}

func (a *app) categories(ctx context.Context) error {
	list, err := a.equipmentSvc.Categories(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
	}
	return w.Flush()
}

func (a *app) slots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("slots", flag.ContinueOnError)
	equipmentID := fs.String("equipment", "", "equipment ID (required)")
	dateValue := fs.String("date", "", "lab-local date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *equipmentID == "" {
		return fmt.Errorf("-equipment is required")
	}

	date, err := a.resolveDate(*dateValue)
	if err != nil {
		return err
	}

	schedule, err := a.reservationSvc.DaySlots(ctx, application.DaySlotsParams{
		Principal:   a.principal(),
		EquipmentID: *equipmentID,
		Date:        date,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s on %s (%s)\n", schedule.Equipment.Name, schedule.Date, a.clock.Location())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tSTATUS\tHELD BY")
	for _, slot := range schedule.Slots {
		start := a.clock.ToLabLocal(slot.Interval.Start).Format("15:04")
		end := a.clock.ToLabLocal(slot.Interval.End).Format("15:04")
		if slot.Available {
			fmt.Fprintf(w, "%s-%s\tavailable\t\n", start, end)
			continue
		}
		fmt.Fprintf(w, "%s-%s\tbooked\t%s\n", start, end, slot.Conflict.ID)
	}
	return w.Flush()
}

func (a *app) reserve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reserve", flag.ContinueOnError)
	equipmentID := fs.String("equipment", "", "equipment ID (required)")
	startValue := fs.String("start", "", "lab-local start, YYYY-MM-DD HH:MM (required)")
	endValue := fs.String("end", "", "lab-local end, YYYY-MM-DD HH:MM (required)")
	purpose := fs.String("purpose", "", "reservation purpose (required)")
	preCheck := fs.Bool("pre-check", false, "ask the store about availability before submitting")
	recurring := fs.String("recurring", "", "recurrence pattern, e.g. weekly")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *equipmentID == "" || *startValue == "" || *endValue == "" {
		return fmt.Errorf("-equipment, -start and -end are required")
	}

	slot, err := a.parseWindow(*startValue, *endValue)
	if err != nil {
		return err
	}

	created, err := a.reservationSvc.Reserve(ctx, application.ReserveParams{
		Principal:   a.principal(),
		EquipmentID: *equipmentID,
		Slot:        slot,
		Purpose:     *purpose,
		Recurring: application.RecurrenceFlag{
			IsRecurring: *recurring != "",
			Pattern:     *recurring,
		},
		PreCheck: *preCheck,
	})
	if err != nil {
		var cErr *gateway.ConflictError
		if errors.As(err, &cErr) {
			fmt.Println("window is no longer available:")
			for _, c := range cErr.Conflicts {
				fmt.Printf("  %s  %s - %s\n", c.ID,
					a.clock.ToLabLocal(c.StartTime).Format(wallTimeLayout),
					a.clock.ToLabLocal(c.EndTime).Format(wallTimeLayout))
			}
			return fmt.Errorf("reservation conflict")
		}
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			for field, message := range vErr.FieldErrors {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, message)
			}
			return fmt.Errorf("request is invalid")
		}
		return err
	}

	fmt.Printf("reserved %s: %s - %s (%s)\n", created.ID,
		a.clock.ToLabLocal(created.Interval.Start).Format(wallTimeLayout),
		a.clock.ToLabLocal(created.Interval.End).Format(wallTimeLayout),
		created.Status)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	id := fs.String("id", "", "reservation ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	if err := a.reservationSvc.Cancel(ctx, a.principal(), *id); err != nil {
		return err
	}
	fmt.Printf("cancelled %s\n", *id)
	return nil
}

func (a *app) listReservations(ctx context.Context, all bool) error {
	list, err := a.reservationSvc.Reservations(ctx, a.principal(), all)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEQUIPMENT\tUSER\tSTART\tEND\tSTATUS")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.EquipmentName, r.UserName,
			a.clock.ToLabLocal(r.Interval.Start).Format(wallTimeLayout),
			a.clock.ToLabLocal(r.Interval.End).Format(wallTimeLayout),
			r.Status)
	}
	return w.Flush()
}

func (a *app) reservations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reservations", flag.ContinueOnError)
	all := fs.Bool("all", false, "list everyone's reservations (lab managers only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.listReservations(ctx, *all)
}

func (a *app) analytics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ContinueOnError)
	fromValue := fs.String("from", "", "first lab-local date, YYYY-MM-DD (required)")
	toValue := fs.String("to", "", "lab-local date after the last, YYYY-MM-DD (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fromValue == "" || *toValue == "" {
		return fmt.Errorf("-from and -to are required")
	}
	from, err := labclock.ParseDate(*fromValue)
	if err != nil {
		return err
	}
	to, err := labclock.ParseDate(*toValue)
	if err != nil {
		return err
	}

	summary, err := a.analyticsSvc.Summary(ctx, a.principal(), from, to)
	if err != nil {
		return err
	}

	fmt.Printf("reservations %s to %s: %d total\n", summary.From, summary.To, summary.TotalReservations)
	for status, count := range summary.ByStatus {
		fmt.Printf("  %s: %d\n", status, count)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EQUIPMENT\tRESERVATIONS\tHOURS\tUTILIZATION")
	for _, e := range summary.Equipment {
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f%%\n", e.EquipmentName, e.Reservations, e.ReservedHours, 100*e.Utilization)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tRESERVATIONS\tHOURS")
	for _, u := range summary.Users {
		fmt.Fprintf(w, "%s\t%d\t%.1f\n", u.UserName, u.Reservations, u.ReservedHours)
	}
	return w.Flush()
}

func (a *app) resolveDate(value string) (labclock.Date, error) {
	if value == "" {
		today := a.clock.ToLabLocal(time.Now())
		return labclock.Date{Year: today.Year(), Month: today.Month(), Day: today.Day()}, nil
	}
	return labclock.ParseDate(value)
}

// parseWindow reads lab-local wall times and converts them to UTC instants.
func (a *app) parseWindow(startValue, endValue string) (interval.Interval, error) {
	start, err := time.Parse(wallTimeLayout, startValue)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("invalid start %q: expected YYYY-MM-DD HH:MM", startValue)
	}
	end, err := time.Parse(wallTimeLayout, endValue)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("invalid end %q: expected YYYY-MM-DD HH:MM", endValue)
	}
	return interval.New(a.clock.ToInstant(start), a.clock.ToInstant(end))
}

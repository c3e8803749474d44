package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/services"
)

func (a *App) commands() []command {
	return []command{
		{name: "login", usage: "login", help: "sign in", run: a.login},
		{name: "logout", usage: "logout", help: "sign out", auth: true, run: a.logout},
		{name: "whoami", usage: "whoami", help: "show the signed-in user and shop", run: a.whoami},
		{name: "resetpw", usage: "resetpw", help: "set a new password with a reset token", run: a.resetPassword},

		{name: "clients", usage: "clients [query]", help: "list or search clients", auth: true, run: a.listClients},
		{name: "addclient", usage: "addclient", help: "register a client", auth: true, run: a.addClient},
		{name: "editclient", usage: "editclient <phone>", help: "change a client", auth: true, run: a.editClient},
		{name: "delclient", usage: "delclient <phone>", help: "delete a client", auth: true, run: a.deleteClient},
		{name: "history", usage: "history <phone>", help: "a client's repairs", auth: true, run: a.clientHistory},

		{name: "repairs", usage: "repairs [all|<status>|query]", help: "list or search repairs", auth: true, run: a.listRepairs},
		{name: "show", usage: "show <ticket>", help: "repair details", auth: true, run: a.showRepair},
		{name: "addrepair", usage: "addrepair", help: "book in a device", auth: true, run: a.addRepair},
		{name: "status", usage: "status <ticket> <status>", help: "move a repair along", auth: true, run: a.setStatus},
		{name: "pay", usage: "pay <ticket> <amount> [method] [code]", help: "record a payment", auth: true, run: a.pay},
		{name: "delrepair", usage: "delrepair <ticket>", help: "delete a repair", auth: true, run: a.deleteRepair},
		{name: "overstayed", usage: "overstayed", help: "fixed devices not collected in time", auth: true, run: a.overstayed},
		{name: "stats", usage: "stats [YYYY-MM]", help: "monthly revenue", auth: true, run: a.stats},

		{name: "users", usage: "users", help: "list staff", auth: true, run: a.listUsers},
		{name: "adduser", usage: "adduser", help: "add a staff account", auth: true, run: a.addUser},
		{name: "deluser", usage: "deluser <username>", help: "remove a staff account", auth: true, run: a.deleteUser},
		{name: "resettoken", usage: "resettoken <username>", help: "issue a password reset token", auth: true, run: a.resetToken},
		{name: "audit", usage: "audit [query]", help: "recent activity", auth: true, run: a.auditLog},

		{name: "settings", usage: "settings", help: "show device settings", auth: true, run: a.showSettings},
		{name: "set", usage: "set <key> <value>", help: "change a device setting", auth: true, run: a.setSetting},

		{name: "push", usage: "push", help: "send local changes to the cloud", auth: true, run: a.pushNow},
		{name: "pull", usage: "pull", help: "refresh from the cloud", auth: true, run: a.pullNow},
		{name: "backup", usage: "backup", help: "write a local backup now", auth: true, run: a.backupNow},
	}
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) table(header string, rows func(w *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func day(t time.Time) string { return t.Local().Format("2006-01-02") }

// --- session

func (a *App) login(ctx context.Context, _ []string) error {
	username, err := a.ask("Username")
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", u.FullName, u.Role)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	org, err := a.orgs.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Shop: %s (plan %s)\n", org.Name, org.SubscriptionPlan)
	if u := a.deps.Session.User(); u != nil {
		fmt.Fprintf(a.out, "User: %s (%s, %s)\n", u.Username, u.FullName, u.Role)
	} else {
		fmt.Fprintln(a.out, "User: not logged in")
	}
	fmt.Fprintf(a.out, "Sync: %s\n", a.Mode())
	return nil
}

func (a *App) resetPassword(ctx context.Context, _ []string) error {
	token, err := a.ask("Reset token")
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if err := a.users.ResetPassword(ctx, token, string(pw)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed, you can login now")
	return nil
}

// --- clients

func (a *App) listClients(ctx context.Context, args []string) error {
	var list []models.Client
	var err error
	if len(args) > 0 {
		list, err = a.clients.Search(ctx, strings.Join(args, " "), 20)
	} else {
		list, err = a.clients.List(ctx, 50)
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No clients")
		return nil
	}
	a.table("PHONE\tNAME\tLOCATION\tSINCE", func(w *tabwriter.Writer) {
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Phone, c.FullName, c.Location, day(c.CreatedAt))
		}
	})
	return nil
}

func (a *App) addClient(ctx context.Context, _ []string) error {
	var in services.ClientInput
	var err error
	if in.FullName, err = a.ask("Full name"); err != nil {
		return err
	}
	if in.Phone, err = a.ask("Phone"); err != nil {
		return err
	}
	if in.Email, err = a.ask("Email (optional)"); err != nil {
		return err
	}
	if in.Location, err = a.ask("Location (optional)"); err != nil {
		return err
	}
	if _, err := a.clients.Create(ctx, in); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Client %s added\n", in.FullName)
	return nil
}

func (a *App) clientByArg(ctx context.Context, args []string, usage string) (*models.Client, error) {
	if len(args) != 1 {
		return nil, usageError(usage)
	}
	return a.clients.GetByPhone(ctx, args[0])
}

func (a *App) editClient(ctx context.Context, args []string) error {
	c, err := a.clientByArg(ctx, args, "editclient <phone>")
	if err != nil {
		return err
	}

	var p models.ClientPatch
	fields := []struct {
		prompt  string
		current string
		dst     **string
	}{
		{"Full name", c.FullName, &p.FullName},
		{"Phone", c.Phone, &p.Phone},
		{"Email", c.Email, &p.Email},
		{"Location", c.Location, &p.Location},
	}
	for _, f := range fields {
		v, err := GetWithDefault(a.reader, f.prompt, f.current, a.out)
		if err != nil {
			return err
		}
		if v != f.current {
			*f.dst = models.Ptr(v)
		}
	}
	if p.IsEmpty() {
		fmt.Fprintln(a.out, "Nothing changed")
		return nil
	}
	if err := a.clients.Update(ctx, c.ID, p); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Client updated")
	return nil
}

func (a *App) deleteClient(ctx context.Context, args []string) error {
	c, err := a.clientByArg(ctx, args, "delclient <phone>")
	if err != nil {
		return err
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %s (%s)?", c.FullName, c.Phone), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.clients.SoftDelete(ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Client deleted")
	return nil
}

func (a *App) clientHistory(ctx context.Context, args []string) error {
	c, err := a.clientByArg(ctx, args, "history <phone>")
	if err != nil {
		return err
	}
	list, err := a.clients.History(ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s): %d repair(s)\n", c.FullName, c.Phone, len(list))
	a.printRepairs(list)
	return nil
}

// --- repairs

func (a *App) printRepairs(list []models.RepairView) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No repairs")
		return
	}
	a.table("TICKET\tSTATUS\tDEVICE\tCLIENT\tPRICE\tPAID\tIN", func(w *tabwriter.Writer) {
		for _, r := range list {
			device := strings.TrimSpace(strings.Join([]string{r.DeviceType, r.Brand, r.Model}, " "))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.TicketNo, r.Status, device, r.ClientName, money(r.FinalPrice), money(r.AmountPaid), day(r.CreatedAt))
		}
	})
}

func (a *App) listRepairs(ctx context.Context, args []string) error {
	var list []models.RepairView
	var err error
	switch {
	case len(args) == 0:
		list, err = a.repairs.List(ctx, models.RepairFilter{ActiveOnly: true, Limit: 50})
	case len(args) == 1 && args[0] == "all":
		list, err = a.repairs.List(ctx, models.RepairFilter{Limit: 100})
	case len(args) == 1 && models.RepairStatus(args[0]).Valid():
		list, err = a.repairs.List(ctx, models.RepairFilter{Status: models.RepairStatus(args[0])})
	default:
		list, err = a.repairs.Search(ctx, strings.Join(args, " "))
	}
	if err != nil {
		return err
	}
	a.printRepairs(list)
	return nil
}

func (a *App) repairByArg(ctx context.Context, args []string, n int, usage string) (*models.RepairView, error) {
	if len(args) < n {
		return nil, usageError(usage)
	}
	return a.repairs.GetByTicket(ctx, args[0])
}

func (a *App) showRepair(ctx context.Context, args []string) error {
	r, err := a.repairByArg(ctx, args, 1, "show <ticket>")
	if err != nil {
		return err
	}
	p := func(label, v string) {
		if v != "" {
			fmt.Fprintf(a.out, "%-14s %s\n", label+":", v)
		}
	}
	p("Ticket", r.TicketNo)
	p("Status", string(r.Status))
	p("Client", fmt.Sprintf("%s (%s)", r.ClientName, r.ClientPhone))
	p("Device", strings.TrimSpace(strings.Join([]string{r.DeviceType, r.Brand, r.Model}, " ")))
	p("Serial", r.SerialNo)
	p("Accessories", r.Accessories)
	p("Issue", r.IssueDescription)
	p("Diagnosis", r.Diagnosis)
	p("Bin", r.BinLocation)
	p("Technician", r.AssignedToName)
	p("Price", money(r.FinalPrice))
	p("Paid", money(r.AmountPaid))
	p("Balance", money(r.Balance()))
	p("Booked in", day(r.CreatedAt))
	if r.DateFixed != nil {
		p("Fixed", day(*r.DateFixed))
	}
	if r.DateOut != nil {
		p("Collected", day(*r.DateOut))
	}
	return nil
}

func (a *App) addRepair(ctx context.Context, _ []string) error {
	phone, err := a.ask("Client phone")
	if err != nil {
		return err
	}
	c, err := a.clients.GetByPhone(ctx, phone)
	if errors.Is(err, common.ErrNotFound) {
		name, err := a.ask("New client, full name")
		if err != nil {
			return err
		}
		id, err := a.clients.Create(ctx, services.ClientInput{FullName: name, Phone: phone})
		if err != nil {
			return err
		}
		c = &models.Client{Syncable: models.Syncable{ID: id}, FullName: name, Phone: phone}
	} else if err != nil {
		return err
	}

	in := services.RepairInput{ClientID: c.ID}
	text := []struct {
		prompt string
		dst    *string
	}{
		{"Device type", &in.DeviceType},
		{"Brand", &in.Brand},
		{"Model", &in.Model},
		{"Serial / IMEI", &in.SerialNo},
		{"Accessories", &in.Accessories},
		{"Issue", &in.IssueDescription},
		{"Bin location", &in.BinLocation},
	}
	for _, f := range text {
		if *f.dst, err = a.ask(f.prompt); err != nil {
			return err
		}
	}
	if in.FinalPrice, err = GetAmount(a.reader, "Quoted price", 0, a.out); err != nil {
		return err
	}
	tech, err := a.ask("Assign to username (optional)")
	if err != nil {
		return err
	}
	if tech != "" {
		if in.AssignedTo, err = a.userID(ctx, tech); err != nil {
			return err
		}
	}

	r, err := a.repairs.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Repair booked for %s, ticket %s\n", c.FullName, r.TicketNo)
	return nil
}

func (a *App) setStatus(ctx context.Context, args []string) error {
	const usage = "status <ticket> <status>"
	r, err := a.repairByArg(ctx, args, 2, usage)
	if err != nil {
		return err
	}
	st := models.RepairStatus(args[1])
	if !st.Valid() {
		names := make([]string, 0, len(models.RepairStatuses))
		for _, s := range models.RepairStatuses {
			names = append(names, string(s))
		}
		return usageError(usage + " (one of " + strings.Join(names, ", ") + ")")
	}
	if err := a.repairs.UpdateStatus(ctx, r.ID, st); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", r.TicketNo, st)
	return nil
}

func (a *App) pay(ctx context.Context, args []string) error {
	r, err := a.repairByArg(ctx, args, 2, "pay <ticket> <amount> [method] [code]")
	if err != nil {
		return err
	}
	in := services.PaymentInput{Method: "Cash"}
	if in.Amount, err = parseAmount(args[1]); err != nil {
		return err
	}
	if len(args) > 2 {
		in.Method = args[2]
	}
	if len(args) > 3 {
		in.MpesaCode = args[3]
	}
	if err := a.repairs.RecordPayment(ctx, r.ID, in); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded %s on %s, balance %s\n", money(in.Amount), r.TicketNo, money(r.Balance()-in.Amount))
	return nil
}

func (a *App) deleteRepair(ctx context.Context, args []string) error {
	r, err := a.repairByArg(ctx, args, 1, "delrepair <ticket>")
	if err != nil {
		return err
	}
	ok, err := Confirm(a.reader, "Delete "+r.TicketNo+"?", a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.repairs.SoftDelete(ctx, r.ID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Repair deleted")
	return nil
}

func (a *App) overstayed(ctx context.Context, _ []string) error {
	list, err := a.repairs.Overstayed(ctx)
	if err != nil {
		return err
	}
	a.printRepairs(list)
	return nil
}

func (a *App) stats(ctx context.Context, args []string) error {
	month := ""
	if len(args) > 0 {
		month = args[0]
	}
	s, err := a.repairs.RevenueStats(ctx, month)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Month:        %s\n", s.Month)
	fmt.Fprintf(a.out, "Revenue:      %s\n", money(s.Revenue))
	fmt.Fprintf(a.out, "Profit:       %s\n", money(s.Profit))
	fmt.Fprintf(a.out, "Outstanding:  %s\n", money(s.OutstandingDebt))
	fmt.Fprintf(a.out, "Collected:    %d\n", s.Collected)
	return nil
}

// --- staff

func (a *App) userID(ctx context.Context, username string) (string, error) {
	list, err := a.users.List(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range list {
		if strings.EqualFold(u.Username, username) {
			return u.ID, nil
		}
	}
	return "", fmt.Errorf("user %q: %w", username, common.ErrNotFound)
}

func (a *App) listUsers(ctx context.Context, _ []string) error {
	list, err := a.users.List(ctx)
	if err != nil {
		return err
	}
	a.table("USERNAME\tNAME\tROLE\tACTIVE", func(w *tabwriter.Writer) {
		for _, u := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", u.Username, u.FullName, u.Role, u.IsActive)
		}
	})
	return nil
}

func (a *App) addUser(ctx context.Context, _ []string) error {
	var in services.UserInput
	var err error
	if in.Username, err = a.ask("Username"); err != nil {
		return err
	}
	if in.FullName, err = a.ask("Full name"); err != nil {
		return err
	}
	role, err := a.ask("Role (admin|technician|front_desk)")
	if err != nil {
		return err
	}
	in.Role = models.Role(role)
	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	in.Password = string(pw)

	if _, err := a.users.Create(ctx, in); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s added\n", in.Username)
	return nil
}

func (a *App) deleteUser(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("deluser <username>")
	}
	id, err := a.userID(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.users.SoftDelete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s removed\n", args[0])
	return nil
}

func (a *App) resetToken(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("resettoken <username>")
	}
	token, err := a.users.RequestPasswordReset(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reset token for %s (valid %s): %s\n", args[0], services.ResetTokenTTL, token)
	return nil
}

func (a *App) auditLog(ctx context.Context, args []string) error {
	list, err := a.audit.List(ctx, 50, strings.Join(args, " "))
	if err != nil {
		return err
	}
	a.table("WHEN\tUSER\tACTION\tENTITY\tDETAILS", func(w *tabwriter.Writer) {
		for _, e := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04"), e.UserName, e.Action, e.Entity, e.Details)
		}
	})
	return nil
}

// --- settings

func (a *App) showSettings(ctx context.Context, _ []string) error {
	all, err := a.settings.All(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "%s = %s\n", k, all[k])
	}
	return nil
}

func (a *App) setSetting(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("set <key> <value>")
	}
	if err := a.settings.Set(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s updated\n", args[0])
	return nil
}

// --- sync and backup

var errNoRemote = errors.New("no remote store configured")

func (a *App) pushNow(ctx context.Context, _ []string) error {
	if a.pusher == nil {
		return errNoRemote
	}
	rep, err := a.pusher.Push(ctx)
	if err != nil {
		return err
	}
	if rep.Offline {
		fmt.Fprintln(a.out, "Offline, changes stay queued")
		return nil
	}
	fmt.Fprintf(a.out, "Pushed %d row(s)\n", rep.Pushed())
	for _, t := range rep.Tables {
		fmt.Fprintf(a.out, "  %-14s %d\n", t.Table, t.Pushed)
	}
	return nil
}

func (a *App) pullNow(ctx context.Context, _ []string) error {
	if a.puller == nil {
		return errNoRemote
	}
	org, err := a.orgs.Current(ctx)
	if err != nil {
		return err
	}
	rep, err := a.puller.Pull(ctx, org.ID)
	if err != nil {
		return err
	}
	if rep.Offline {
		fmt.Fprintln(a.out, "Offline, nothing pulled")
		return nil
	}
	for _, t := range []string{"organizations", "users", "clients", "repairs"} {
		fmt.Fprintf(a.out, "  %-14s %d\n", t, rep.Rows[t])
	}
	return nil
}

func (a *App) backupNow(ctx context.Context, _ []string) error {
	res, err := a.backup.Run(ctx)
	if res.Path != "" {
		fmt.Fprintf(a.out, "Backup written to %s\n", res.Path)
		if len(res.Pruned) > 0 {
			fmt.Fprintf(a.out, "Removed %d old backup(s)\n", len(res.Pruned))
		}
		if res.Uploaded {
			fmt.Fprintln(a.out, "Uploaded offsite")
		}
	}
	return err
}

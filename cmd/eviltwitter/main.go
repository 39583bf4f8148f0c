package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"eviltwitter/internal/analytics"
	"eviltwitter/internal/apiclient"
	"eviltwitter/internal/auth"
	"eviltwitter/internal/cmdlog"
	"eviltwitter/internal/config"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/grouping"
	"eviltwitter/internal/jobs"
	"eviltwitter/internal/journal"
	"eviltwitter/internal/logging"
	"eviltwitter/internal/metrics"
	"eviltwitter/internal/model"
	"eviltwitter/internal/normalize"
	"eviltwitter/internal/store"
	"eviltwitter/internal/theme"
	"eviltwitter/internal/thread"
	"eviltwitter/internal/tokens"
	"eviltwitter/internal/util"
)

const defaultConfigPath = "./eviltwitter.yaml"

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"init", "Create a config file at ./eviltwitter.yaml", cmdInit},
	{"whoami", "Resolve the session user", cmdWhoami},
	{"timeline", "Show the latest tweets", cmdTimeline},
	{"sync", "Page the timeline forward from the saved cursor", cmdSync},
	{"thread", "Show a tweet with its parents and replies", cmdThread},
	{"post", "Post a tweet, a reply (-reply) or a quote (-quote)", cmdPost},
	{"retweet", "Retweet a tweet", cmdRetweet},
	{"like", "Like a tweet", cmdLike},
	{"smack", "Smack a tweet", cmdSmack},
	{"attack", "Attack (or -heal) a tweet with a weapon", cmdAttack},
	{"profile", "Show a user profile", cmdProfile},
	{"follow", "Follow a user", cmdFollow},
	{"unfollow", "Unfollow a user", cmdUnfollow},
	{"followers", "List followers (or -following)", cmdFollowers},
	{"intimate", "Request, list or answer intimate follows", cmdIntimate},
	{"weapons", "Show the weapon catalog and owned weapons (-buy to purchase)", cmdWeapons},
	{"shop", "List shop items and balances", cmdShop},
	{"purchase", "Buy a shop item", cmdPurchase},
	{"market", "List marketplace listings", cmdMarket},
	{"list", "Put an owned asset on the marketplace", cmdList},
	{"buy", "Buy a marketplace listing", cmdBuy},
	{"cancel", "Cancel one of your listings", cmdCancel},
	{"rewards", "Show claimable rewards grouped by post", cmdRewards},
	{"tips", "Show unclaimed tips by token and by post", cmdTips},
	{"claim-tips", "Claim tips for a token (-mint) or a post (-post)", cmdClaimTips},
	{"settings", "Set the default payment token (-token) or script language (-language)", cmdSettings},
	{"register", "Create the backend account for the session", cmdRegister},
	{"history", "Show the local action journal", cmdHistory},
}

func main() {
	name := ""
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := cmdlog.Run(c.name, func() error { return c.run(os.Args[2:]) }); err != nil {
			fmt.Println(theme.Bad("error:"), err)
			os.Exit(1)
		}
		return
	}
	printHelp()
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: eviltwitter <command> [options]")
	fmt.Println("Commands:")
	for _, c := range commands {
		fmt.Printf("  %-11s %s\n", c.name, c.usage)
	}
}

// env is everything a command needs, built from the config file.
type env struct {
	cfg     config.Config
	api     *apiclient.Client
	gql     *graphql.Client
	reg     *tokens.Registry
	journal *journal.DB
	app     *store.App
}

func (e *env) Close() {
	if e.journal != nil {
		_ = e.journal.Close()
	}
}

func setup(cfgPath string) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty)
	metrics.StartServer(cfg.Metrics.Addr)

	session, err := auth.NewSession(cfg.Auth.BearerToken, cfg.Auth.UserID)
	if err != nil {
		return nil, err
	}
	if !session.LoggedIn() {
		logging.Debug("no_session", map[string]any{"hint": "set EVIL_AUTH_TOKEN to act as a user"})
	}
	api := apiclient.New(apiclient.OptionsFromConfig(cfg), session)
	gql := graphql.New(graphql.Options{
		Endpoint: graphql.Endpoint(cfg.API.BaseURL, cfg.API.GraphQLPath),
		Timeout:  cfg.Client.Timeout,
		Limiter:  api.Limiter(),
	}, session)
	reg := tokens.NewRegistry(cfg.Tokens)

	e := &env{cfg: cfg, api: api, gql: gql, reg: reg}
	if cfg.Storage.JournalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.JournalPath), 0o755); err != nil {
			return nil, err
		}
		db, err := journal.Open(cfg.Storage.JournalPath)
		if err != nil {
			return nil, err
		}
		e.journal = db
	}
	e.app = store.New(store.FromClients(api, gql, reg, e.journal, cfg.API.Variant == config.VariantWeb))
	return e, nil
}

// parse parses fs and builds the env. It returns the remaining positional args.
func parse(fs *flag.FlagSet, args []string) (*env, []string, error) {
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	e, err := setup(*cfgPath)
	if err != nil {
		return nil, nil, err
	}
	return e, fs.Args(), nil
}

func needArg(rest []string, what string) (string, error) {
	if len(rest) == 0 || strings.TrimSpace(rest[0]) == "" {
		return "", fmt.Errorf("missing %s", what)
	}
	return strings.TrimSpace(rest[0]), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func line(tw model.Tweet) string {
	m := tw.Metrics
	kind := ""
	if tw.Type != "" && tw.Type != model.TweetOriginal {
		kind = " (" + string(tw.Type) + ")"
	}
	return fmt.Sprintf("%s %s%s  %s\n    ♥%d ↻%d ❝%d ↩%d  id=%s",
		normalize.DisplayDate(tw.CreatedAt), util.Handle(tw.Author.Username), kind,
		util.Snippet(tw.Content, 120), m.Likes, m.Retweets, m.Quotes, m.Replies, tw.ID)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfigPath, "path to write config")
	_ = fs.Parse(args)
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	if !e.app.Auth.LoggedIn() {
		fmt.Println("not logged in")
		return nil
	}
	if err := e.app.Auth.Refresh(context.Background()); err != nil {
		return err
	}
	u, ok := e.app.Auth.User()
	if !ok {
		fmt.Println("session user:", e.app.Auth.Session().UserID())
		return nil
	}
	fmt.Printf("%s (%s) id=%s followers=%d following=%d\n",
		util.Handle(u.Username), u.DisplayName, u.ID, u.FollowersCount, u.FollowingCount)
	if exp := e.app.Auth.Session().ExpiresAt(); !exp.IsZero() {
		fmt.Println("token expires:", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func cmdTimeline(args []string) error {
	fs := flag.NewFlagSet("timeline", flag.ExitOnError)
	limit := fs.Int("limit", 20, "tweets to show")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.app.Tweets.FetchTweets(context.Background()); err != nil {
		return err
	}
	feed := e.app.Tweets.Feed()
	for i := 0; i < len(feed) && i < *limit; i++ {
		fmt.Println(line(feed[i]))
	}
	return nil
}

func cmdSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	perPage := fs.Int("per-page", 20, "tweets per page")
	pages := fs.Int("pages", 5, "max pages per pass")
	watch := fs.Duration("watch", 0, "repeat on this interval until interrupted")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.journal == nil {
		return fmt.Errorf("sync needs storage.journalPath to keep its cursor")
	}
	sink := func(ts []model.Tweet) {
		for _, tw := range ts {
			fmt.Println(line(tw))
		}
	}
	if *watch > 0 {
		ctx, cancel := signalContext()
		defer cancel()
		if err := jobs.RunSyncLoop(ctx, e.gql, e.journal, *perPage, *pages, *watch, sink); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
	n, err := jobs.SyncTimeline(context.Background(), e.gql, e.journal, *perPage, *pages, sink)
	if err != nil {
		return err
	}
	fmt.Printf("synced %d tweets\n", n)
	return nil
}

func cmdThread(args []string) error {
	fs := flag.NewFlagSet("thread", flag.ExitOnError)
	all := fs.Bool("all", false, "show every direct reply")
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "tweet id")
	if err != nil {
		return err
	}
	if err := e.app.Tweets.FetchThread(context.Background(), id); err != nil {
		return err
	}
	th, _ := e.app.Tweets.Thread(id)
	v := thread.View{ShowAll: *all, Collapsed: e.cfg.Display.CollapsedReplies}
	if err := thread.Render(os.Stdout, th, v); err != nil {
		return err
	}
	hp := th.Anchor.Health
	if hp.Max > 0 {
		fmt.Printf("health %.0f/%.0f  energy %.1f\n", hp.Current, hp.Max, th.Anchor.Energy.Energy)
	}
	return nil
}

func cmdPost(args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	replyTo := fs.String("reply", "", "tweet id to reply to")
	quote := fs.String("quote", "", "tweet id to quote")
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	content := util.NormalizeWhitespace(strings.Join(rest, " "))
	if content == "" {
		return fmt.Errorf("missing content")
	}
	ctx := context.Background()
	var tw model.Tweet
	switch {
	case *replyTo != "":
		tw, err = e.app.Tweets.Reply(ctx, *replyTo, content)
	case *quote != "":
		tw, err = e.app.Tweets.Quote(ctx, *quote, content)
	default:
		tw, err = e.app.Tweets.Create(ctx, content)
	}
	if err != nil {
		return err
	}
	fmt.Println(theme.Good("posted"), tw.ID)
	return nil
}

func cmdRetweet(args []string) error {
	fs := flag.NewFlagSet("retweet", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "tweet id")
	if err != nil {
		return err
	}
	tw, err := e.app.Tweets.Retweet(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Println(theme.Good("retweeted"), tw.ID)
	return nil
}

func cmdLike(args []string) error {
	fs := flag.NewFlagSet("like", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "tweet id")
	if err != nil {
		return err
	}
	if err := e.app.Tweets.Like(context.Background(), id); err != nil {
		return err
	}
	fmt.Println(theme.Good("liked"), id)
	return nil
}

func cmdSmack(args []string) error {
	fs := flag.NewFlagSet("smack", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "tweet id")
	if err != nil {
		return err
	}
	charged, err := e.app.Tweets.Smack(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (charged %.4f)\n", theme.Good("smacked"), id, charged)
	return nil
}

func cmdAttack(args []string) error {
	fs := flag.NewFlagSet("attack", flag.ExitOnError)
	weapon := fs.String("weapon", "", "weapon id")
	heal := fs.Bool("heal", false, "heal instead of attack")
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "tweet id")
	if err != nil {
		return err
	}
	if *weapon == "" {
		return fmt.Errorf("missing -weapon")
	}
	ctx := context.Background()
	var hp float64
	if *heal {
		hp, err = e.app.Tweets.Heal(ctx, id, *weapon)
	} else {
		hp, err = e.app.Tweets.Attack(ctx, id, *weapon)
	}
	if err != nil {
		return err
	}
	fmt.Printf("tweet %s health now %.0f\n", id, hp)
	return nil
}

func cmdProfile(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "user id")
	if err != nil {
		return err
	}
	if err := e.app.Users.FetchProfile(context.Background(), id); err != nil {
		return err
	}
	p, _ := e.app.Users.Profile(id)
	u := p.User
	e.app.Follows.Seed(map[string]bool{id: p.IsFollowedBy})
	if e.app.Auth.LoggedIn() && id != e.app.Auth.Session().UserID() {
		if _, err := e.app.Follows.CheckStatus(context.Background(), id); err != nil {
			logging.Warn("follow_status", map[string]any{"user": id, "error": err.Error()})
		}
	}
	fmt.Printf("%s  %s\n", util.Handle(u.Username), u.DisplayName)
	if u.Bio != "" {
		fmt.Println(util.Snippet(u.Bio, 200))
	}
	fmt.Printf("followers=%d following=%d tweets=%d you follow: %t\n",
		u.FollowersCount, u.FollowingCount, max(u.TweetsCount, p.TotalTweets), e.app.Follows.IsFollowing(id))
	for _, tw := range p.Tweets {
		fmt.Println(line(tw))
	}
	return nil
}

func cmdFollow(args []string) error   { return followCmd("follow", args, true) }
func cmdUnfollow(args []string) error { return followCmd("unfollow", args, false) }

func followCmd(name string, args []string, want bool) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "user id")
	if err != nil {
		return err
	}
	ctx := context.Background()
	if now, err := e.app.Follows.CheckStatus(ctx, id); err == nil && now == want {
		fmt.Printf("following %s: %t (unchanged)\n", id, now)
		return nil
	}
	if want {
		err = e.app.Follows.Follow(ctx, id)
	} else {
		err = e.app.Follows.Unfollow(ctx, id)
	}
	if err != nil {
		return err
	}
	fmt.Printf("following %s: %t\n", id, e.app.Follows.IsFollowing(id))
	return nil
}

func cmdFollowers(args []string) error {
	fs := flag.NewFlagSet("followers", flag.ExitOnError)
	following := fs.Bool("following", false, "list who the user follows instead")
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id := e.app.Auth.Session().UserID()
	if len(rest) > 0 {
		id = rest[0]
	}
	if id == "" {
		return fmt.Errorf("missing user id")
	}
	ctx := context.Background()
	var users []model.User
	if *following {
		if err := e.app.Users.FetchFollowing(ctx, id); err != nil {
			return err
		}
		users = e.app.Users.Following(id)
	} else {
		if err := e.app.Users.FetchFollowers(ctx, id); err != nil {
			return err
		}
		users = e.app.Users.Followers(id)
	}
	for _, u := range users {
		fmt.Printf("%s  %s  id=%s\n", util.Handle(u.Username), u.DisplayName, u.ID)
	}
	fmt.Printf("%d users\n", len(users))
	return nil
}

func cmdIntimate(args []string) error {
	fs := flag.NewFlagSet("intimate", flag.ExitOnError)
	request := fs.String("request", "", "ask this user for an intimate follow")
	status := fs.String("status", "", "show the request status for this user")
	approve := fs.String("approve", "", "approve this request id")
	reject := fs.String("reject", "", "reject this request id")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	f := e.app.Follows
	switch {
	case *request != "":
		if err := f.RequestIntimate(ctx, *request); err != nil {
			return err
		}
		fmt.Println("request", f.IntimateStatus(*request))
	case *status != "":
		if err := f.FetchIntimateStatus(ctx, *status); err != nil {
			return err
		}
		st := f.IntimateStatus(*status)
		if st == "" {
			st = "none"
		}
		fmt.Println("status:", st)
	case *approve != "" || *reject != "":
		id, ok := *approve, true
		if id == "" {
			id, ok = *reject, false
		}
		if err := f.Decide(ctx, id, ok); err != nil {
			return err
		}
		fmt.Println(theme.Good("done"))
	default:
		if err := f.FetchRequests(ctx); err != nil {
			return err
		}
		for _, r := range f.Requests() {
			fmt.Printf("%s from=%s status=%s %s\n", r.ID, r.RequesterID, r.Status, normalize.DisplayDate(r.CreatedAt))
		}
	}
	return nil
}

func cmdWeapons(args []string) error {
	fs := flag.NewFlagSet("weapons", flag.ExitOnError)
	buy := fs.String("buy", "", "catalog id to purchase")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	w := e.app.Weapons
	if *buy != "" {
		got, err := w.Buy(ctx, *buy)
		if err != nil {
			return err
		}
		fmt.Println(theme.Good("bought"), got.Name, got.ID)
		return nil
	}
	if err := w.FetchCatalog(ctx); err != nil {
		return err
	}
	fmt.Println("Catalog:")
	for _, c := range w.Catalog() {
		fmt.Printf("  %s %-16s dmg=%.0f hp=%.0f price=%.2f id=%s\n", c.Emoji, c.Name, c.Damage, c.Health, c.Price, c.ID)
	}
	if e.app.Auth.Session().UserID() == "" {
		return nil
	}
	if err := w.FetchOwned(ctx); err != nil {
		return err
	}
	fmt.Println("Owned:")
	for _, o := range w.Owned() {
		fmt.Printf("  %-16s %.0f/%.0f id=%s\n", o.Name, o.Health, o.MaxHealth, o.ID)
	}
	return nil
}

func cmdShop(args []string) error {
	fs := flag.NewFlagSet("shop", flag.ExitOnError)
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	eco := e.app.Economy
	ctx := context.Background()
	if err := eco.RefreshAll(ctx); err != nil {
		logging.Warn("shop_partial", map[string]any{"error": err.Error()})
	}
	for _, b := range eco.Balances() {
		fmt.Printf("%s: %.4f available, %.4f locked\n", b.TokenSymbol, b.Available, b.Locked)
	}
	for _, it := range grouping.ActiveShopItems(eco.Shop()) {
		left := ""
		if it.RemainingSupply != nil {
			left = fmt.Sprintf(" (%d left)", *it.RemainingSupply)
		}
		fmt.Printf("  %-20s %.2f %s%s id=%s\n", it.Name, it.PriceAmount, it.PriceToken, left, it.ID)
	}
	if msg := eco.Err(); msg != "" {
		fmt.Println(theme.Bad(msg))
	}
	return nil
}

func cmdPurchase(args []string) error {
	fs := flag.NewFlagSet("purchase", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "item id")
	if err != nil {
		return err
	}
	if err := e.app.Economy.Purchase(context.Background(), id); err != nil {
		return err
	}
	fmt.Println(theme.Good("purchased"), id)
	for _, b := range e.app.Economy.Balances() {
		fmt.Printf("%s: %.4f\n", b.TokenSymbol, b.Available)
	}
	return nil
}

func cmdMarket(args []string) error {
	fs := flag.NewFlagSet("market", flag.ExitOnError)
	mine := fs.Bool("mine", false, "only your listings")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	eco := e.app.Economy
	if err := eco.FetchListings(context.Background()); err != nil {
		return err
	}
	listings := grouping.ActiveListings(eco.Listings())
	if *mine {
		listings = eco.MyListings()
	}
	for _, l := range listings {
		fmt.Printf("%s asset=%s %.4f %s fee=%dbps seller=%s status=%s\n",
			l.ID, l.AssetID, l.PriceAmount, l.PriceToken, l.FeeBps, l.SellerID, l.Status)
	}
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	asset := fs.String("asset", "", "asset id")
	price := fs.String("price", "", "price amount")
	token := fs.String("token", store.DefaultToken, "price token")
	fee := fs.Int("fee", -1, "fee in basis points (default 250)")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	form := grouping.ListingForm{AssetID: *asset, PriceAmount: *price, PriceToken: *token}
	if *fee >= 0 {
		form.FeeBps = fee
	}
	l, err := e.app.Economy.List(context.Background(), form)
	if err != nil {
		return err
	}
	fmt.Println(theme.Good("listed"), l.ID)
	return nil
}

func cmdBuy(args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "listing id")
	if err != nil {
		return err
	}
	if err := e.app.Economy.BuyListing(context.Background(), id); err != nil {
		return err
	}
	fmt.Println(theme.Good("bought listing"), id)
	return nil
}

func cmdCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	e, rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	id, err := needArg(rest, "listing id")
	if err != nil {
		return err
	}
	if err := e.app.Economy.CancelListing(context.Background(), id); err != nil {
		return err
	}
	fmt.Println(theme.Good("cancelled"), id)
	return nil
}

func cmdRewards(args []string) error {
	fs := flag.NewFlagSet("rewards", flag.ExitOnError)
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	learnPayments(ctx, e)
	if err := e.app.Rewards.FetchRewards(ctx); err != nil {
		return err
	}
	groups := e.app.Rewards.Groups()
	if len(groups) == 0 {
		fmt.Println("no claimable rewards")
		return nil
	}
	for _, g := range groups {
		fmt.Printf("post %s tweet=%s\n", util.ShortenMiddle(g.PostIDHash, 6), g.TweetID)
		for mint, total := range g.TotalByMint(e.reg) {
			fmt.Printf("  %s %s\n", total.String(), e.reg.Symbol(mint))
		}
	}
	return nil
}

func cmdTips(args []string) error {
	fs := flag.NewFlagSet("tips", flag.ExitOnError)
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	r := e.app.Rewards
	ctx := context.Background()
	learnPayments(ctx, e)
	if err := r.FetchTips(ctx); err != nil {
		return err
	}
	fmt.Println("By token:")
	for _, b := range r.TipsByToken() {
		fmt.Printf("  %.6f %s\n", b.Amount, e.reg.Symbol(b.TokenMint))
	}
	fmt.Println("By post:")
	for _, p := range r.TipsByPost() {
		if !p.Claimable() {
			continue
		}
		fmt.Printf("  post %s\n", firstNonEmpty(p.PostID, util.ShortenMiddle(p.PostIDHash, 6)))
		for _, t := range p.Unclaimed() {
			fmt.Printf("    %.6f %s\n", t.TotalAmount, e.reg.Symbol(t.TokenMint))
		}
	}
	return nil
}

func cmdClaimTips(args []string) error {
	fs := flag.NewFlagSet("claim-tips", flag.ExitOnError)
	mint := fs.String("mint", "", "token mint (default token when empty)")
	post := fs.String("post", "", "claim only this post's tips")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	if *post != "" {
		sig, err := e.app.Rewards.ClaimTipsByPost(ctx, *post, *mint)
		if err != nil {
			return err
		}
		fmt.Println(theme.Good("claimed"), "signature:", sig)
		return nil
	}
	res, err := e.app.Rewards.ClaimTips(ctx, *mint)
	if err != nil {
		return err
	}
	fmt.Printf("%s %.6f signature: %s\n", theme.Good("claimed"), res.AmountClaimed, res.Signature)
	return nil
}

// learnPayments lets the registry pick up token decimals from the backend.
// Configured decimals stay in use when the query fails.
func learnPayments(ctx context.Context, e *env) {
	if err := e.app.Rewards.FetchValidPayments(ctx); err != nil {
		logging.Warn("valid_payments", map[string]any{"error": err.Error()})
	}
}

func cmdSettings(args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	token := fs.String("token", "", "default payment token mint (\"default\" resets it)")
	language := fs.String("language", "", "script language: "+strings.Join(store.Languages, ", "))
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	st := e.app.Settings
	if *token == "" && *language == "" {
		learnPayments(ctx, e)
		fmt.Println("accepted payment tokens:")
		for _, p := range e.app.Rewards.ValidPayments() {
			state := "enabled"
			if !p.Enabled {
				state = "disabled"
			}
			fmt.Printf("  %-10s %s decimals=%d %s\n", e.reg.Symbol(p.TokenMint), p.TokenMint, e.reg.Decimals(p.TokenMint), state)
		}
		return nil
	}
	if *token != "" {
		mint := *token
		if mint == "default" {
			mint = ""
		}
		if err := st.SetDefaultToken(ctx, mint); err != nil {
			return err
		}
		fmt.Println(theme.Good("default token"), firstNonEmpty(e.reg.Symbol(st.DefaultToken()), "backend default"))
	}
	if *language != "" {
		if err := st.SetLanguage(ctx, *language); err != nil {
			return err
		}
		fmt.Println(theme.Good("language"), st.Language())
	}
	return nil
}

func cmdRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "handle to register")
	display := fs.String("display-name", "", "display name (defaults to the handle)")
	email := fs.String("email", "", "contact email")
	bio := fs.String("bio", "", "profile bio")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	name := strings.TrimPrefix(strings.TrimSpace(*username), "@")
	if name == "" {
		return fmt.Errorf("missing -username")
	}
	authID := ""
	if tok, err := e.app.Auth.Session().Token(); err == nil {
		if claims, err := auth.ParseClaims(tok); err == nil {
			authID = claims.Subject
		}
	}
	u, err := e.app.Auth.Register(context.Background(), apiclient.NewUser{
		AuthID:      authID,
		Username:    name,
		DisplayName: firstNonEmpty(*display, name),
		Email:       *email,
		Bio:         *bio,
	})
	if err != nil {
		return err
	}
	fmt.Println(theme.Good("registered"), util.Handle(u.Username), "id="+u.ID)
	return nil
}

func cmdHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	kind := fs.String("kind", "", "only this action kind")
	limit := fs.Int("limit", 50, "actions to show")
	hourly := fs.Bool("hourly", false, "show per-hour counts instead of entries")
	e, _, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.journal == nil {
		return fmt.Errorf("history needs storage.journalPath")
	}
	ctx := context.Background()
	actions, err := e.journal.LoadActions(ctx, *kind, *limit)
	if err != nil {
		return err
	}
	if *hourly {
		b := analytics.HourlyActivity(actions)
		for _, k := range analytics.SortedBucketKeys(b) {
			fmt.Printf("%s -> %v\n", k.Local().Format("Jan 02 15:00"), b[k])
		}
	} else {
		for _, a := range actions {
			status := theme.Good("ok")
			if !a.OK {
				status = theme.Bad("failed: " + a.Message)
			}
			fmt.Printf("%s %-18s %-24s %s\n", normalize.DisplayDate(a.At), a.Kind, a.Target, status)
		}
	}
	hour, day, err := analytics.Recent(ctx, e.journal, *kind, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("this hour: %d, today: %d, failures shown: %d\n", hour, day, analytics.FailureCount(actions))
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

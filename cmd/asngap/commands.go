package main

import (
	"strings"

	"github.com/spf13/cobra"

	"paepcke.de/asngap"
	"paepcke.de/asngap/asnset"
	"paepcke.de/asngap/spoofer"
)

func newRirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rir",
		Short: "Collect the asns all registries delegate to the country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			set, err := a.recon.CollectCountryAsns(ctx, a.cfg.Country)
			if err != nil {
				return err
			}
			if err := a.saveSet("rir_asns_"+a.cc(), set); err != nil {
				return err
			}
			printCounts(a.out, []string{"Source", "ASNs"}, [][]string{{"registries", itoa(set.Len())}})
			return nil
		},
	}
}

func newCaidaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "caida",
		Short: "Collect the asns caida attributes to the country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			set, err := a.recon.CollectCaidaAsns(ctx, a.cfg.Country)
			if err != nil {
				return err
			}
			if err := a.saveSet("caida_asns_"+a.cc(), set); err != nil {
				return err
			}
			printCounts(a.out, []string{"Source", "ASNs"}, [][]string{{"caida", itoa(set.Len())}})
			return nil
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "List the registry asns missing from caida",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			cmp, err := a.recon.RunFullComparison(ctx)
			if err != nil {
				return err
			}
			return a.saveComparison(cmp)
		},
	}
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <asn>",
		Short: "Classify one asn by its most recent spoofer test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			out, err := a.recon.Classify(ctx, args[0])
			if err != nil {
				return err
			}
			printCounts(a.out, []string{"ASN", "Category"}, [][]string{{out.ASN, string(out.Category)}})
			return nil
		},
	}
}

func newCategorizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize [file|-]",
		Short: "Categorize an asn list, the missing asns of a full comparison without a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			var asns []string
			if len(args) == 0 {
				cmp, err := a.recon.RunFullComparison(ctx)
				if err != nil {
					return err
				}
				if err := a.saveComparison(cmp); err != nil {
					return err
				}
				asns = cmp.Missing
			} else {
				rc, err := asngap.OpenList(args[0])
				if err != nil {
					return err
				}
				asns, err = asngap.ReadList(rc)
				rc.Close()
				if err != nil {
					return err
				}
			}

			cats, err := a.recon.CategorizeBatch(ctx, asns)
			if cats != nil {
				if serr := a.saveCategories(cats); serr != nil {
					return serr
				}
				printCategories(a.out, cats)
			}
			return err
		},
	}
}

func newScrapeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Dump the country wide spoofer result table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			lines, err := a.recon.ScrapeCountry(ctx)
			if len(lines) > 0 {
				path, serr := a.store.Write("spoofer_"+strings.ToLower(a.cfg.Spoofer.Country)+".tsv", lines)
				if serr != nil {
					return serr
				}
				a.log.WithField("path", path).Info("artifact written")
			}
			printCounts(a.out, []string{"Table", "Lines"}, [][]string{{"spoofer " + a.cfg.Spoofer.Country, itoa(len(lines))}})
			return err
		},
	}
}

func newPrefixesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prefixes <file>",
		Short: "Extract the client prefixes of exported result rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rc, err := asngap.OpenList(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			prefixes, err := a.recon.ExtractPrefixes(rc)
			if err != nil {
				return err
			}
			path, err := a.store.Write("unknown_prefixes.csv", prefixes)
			if err != nil {
				return err
			}
			a.log.WithField("path", path).Info("artifact written")
			printCounts(a.out, []string{"Artifact", "Prefixes"}, [][]string{{path, itoa(len(prefixes))}})
			return nil
		},
	}
}

// cc is the lower case registry country
func (a *app) cc() string { return strings.ToLower(a.cfg.Country) }

// saveSet ...
func (a *app) saveSet(name string, set asnset.Set) error {
	path, err := a.store.Write(name, set.Sorted())
	if err != nil {
		return err
	}
	a.log.WithField("path", path).Info("artifact written")
	return nil
}

// saveComparison writes the three asn lists and prints the summary
func (a *app) saveComparison(cmp *asngap.Comparison) error {
	if err := a.saveSet("rir_asns_"+a.cc(), cmp.Registry); err != nil {
		return err
	}
	if err := a.saveSet("caida_asns_"+a.cc(), cmp.Caida); err != nil {
		return err
	}
	if err := a.saveSet("missing_asns_"+a.cc(), asnset.New(cmp.Missing...)); err != nil {
		return err
	}
	caida := itoa(cmp.Caida.Len())
	if cmp.Degraded {
		caida += " (unreachable)"
	}
	printCounts(a.out, []string{"Source", "ASNs"}, [][]string{
		{"registries", itoa(cmp.Registry.Len())},
		{"caida", caida},
		{"missing", itoa(len(cmp.Missing))},
	})
	return nil
}

// saveCategories writes the text report and one csv per non empty category
func (a *app) saveCategories(cats spoofer.Categories) error {
	var report []string
	if r := strings.TrimRight(cats.Report(), "\n"); r != "" {
		report = strings.Split(r, "\n")
	}
	path, err := a.store.Write("spoofing_categories.txt", report)
	if err != nil {
		return err
	}
	a.log.WithField("path", path).Info("artifact written")
	for _, cat := range spoofer.AllCategories {
		if len(cats[cat]) == 0 {
			continue
		}
		csv, err := cats.CSV(cat)
		if err != nil {
			return err
		}
		path, err := a.store.Write(string(cat)+".csv", strings.Split(strings.TrimSuffix(csv, "\n"), "\n"))
		if err != nil {
			return err
		}
		a.log.WithField("path", path).Info("artifact written")
	}
	return nil
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"licensesync/internal/api"
	"licensesync/internal/app"
	"licensesync/internal/license"
)

func newCustomersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List distinct customer names",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				customers, err := rt.Licenses.Customers(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.CustomersResponse{OK: true, Customers: customers})
				}
				for _, c := range customers {
					fmt.Fprintln(cmd.OutOrStdout(), c.CustomerName)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProductsCommand(ctx *commandContext) *cobra.Command {
	var customer string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List distinct product titles for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				products, err := rt.Licenses.Products(cmd.Context(), customer)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.ProductsResponse{OK: true, Products: products})
				}
				for _, p := range products {
					fmt.Fprintln(cmd.OutOrStdout(), p.ProductTitle)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Customer name (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// addFilterFlags binds the reporting filter shared by licenses and export.
func addFilterFlags(cmd *cobra.Command, req *api.LicenseDetailsRequest) {
	cmd.Flags().StringVar(&req.DateFrom, "from", "", "First access on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.DateTo, "to", "", "First access on or before (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.CustomerName, "customer", "", "Exact customer name")
	cmd.Flags().StringVar(&req.ProductTitle, "product", "", "Exact product title")
}

func newLicensesCommand(ctx *commandContext) *cobra.Command {
	var req api.LicenseDetailsRequest
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "licenses",
		Short: "Show stored license rows, one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				resp, err := rt.Licenses.Details(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.License) == 0 {
					fmt.Fprintln(out, "No licenses match")
					return nil
				}
				pages := (resp.Total + license.PageSize - 1) / license.PageSize
				caption := fmt.Sprintf("Page %d of %d (%d rows)", max(req.Page, 1), pages, resp.Total)
				fmt.Fprintln(out, licensesTable(resp.License, caption))
				return nil
			})
		},
	}
	addFilterFlags(cmd, &req)
	cmd.Flags().IntVar(&req.Page, "page", 1, "Page number")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func licensesTable(rows []license.StoredRecord, caption string) string {
	body := make([][]string, 0, len(rows))
	for _, row := range rows {
		prov := "no"
		if row.IsProvisional == 1 {
			prov = "yes"
		}
		body = append(body, []string{
			cell(row.CustomerName),
			cell(row.UserUsername),
			cell(row.ProductTitle),
			cell(row.LicenseStart),
			cell(row.LicenseEnd),
			numberCell(row.ProductPrice),
			cell(row.TrackingFirstAccess),
			prov,
		})
	}
	return renderTable([]column{
		textColumn("Customer"), textColumn("User"), textColumn("Product"),
		textColumn("Start"), textColumn("End"), numericColumn("Price"),
		textColumn("First access"), textColumn("Provisional"),
	}, body, caption)
}

func cell(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func numberCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
